package npmtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubNpm replaces the npm runner for the duration of one test.
func stubNpm(t *testing.T, fn func(dir string, args ...string) ([]byte, error)) {
	t.Helper()
	original := runNpm
	runNpm = func(_ context.Context, dir string, args ...string) ([]byte, error) {
		return fn(dir, args...)
	}
	t.Cleanup(func() { runNpm = original })
}

func TestDependencies(t *testing.T) {
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		require.Equal(t, []string{"view", "chalk-consumer@1.0.0", "dependencies", "--json"}, args)
		return []byte(`{"chalk": "^5.3.0", "yargs": "^17.0.0"}`), nil
	})

	deps, err := Dependencies(context.Background(), "chalk-consumer", "1.0.0", "dependencies")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"chalk": "^5.3.0", "yargs": "^17.0.0"}, deps)
}

func TestDependenciesListResponse(t *testing.T) {
	// npm occasionally answers with a bare list of names
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		return []byte(`["chalk", "yargs"]`), nil
	})

	deps, err := Dependencies(context.Background(), "chalk-consumer", "", "dependencies")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"chalk": "latest", "yargs": "latest"}, deps)
}

func TestDependenciesEmptyOutput(t *testing.T) {
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		return []byte("\n"), nil
	})

	deps, err := Dependencies(context.Background(), "no-deps", "", "dependencies")
	require.NoError(t, err)
	require.Nil(t, deps)
}

func TestVersions(t *testing.T) {
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		require.Equal(t, []string{"view", "mcp-server-neon", "versions", "--json"}, args)
		return []byte(`["0.6.2", "0.6.3", "0.6.4"]`), nil
	})

	versions, err := Versions(context.Background(), "mcp-server-neon")
	require.NoError(t, err)
	require.Equal(t, []string{"0.6.2", "0.6.3", "0.6.4"}, versions)
}

func TestVersionsSingleRelease(t *testing.T) {
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		return []byte(`"1.0.0"`), nil
	})

	versions, err := Versions(context.Background(), "one-shot")
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0"}, versions)
}

func TestAudit(t *testing.T) {
	auditOutput, err := os.ReadFile(filepath.Join("testdata", "audit_output.json"))
	require.NoError(t, err)

	var sawInstall bool
	stubNpm(t, func(dir string, args ...string) ([]byte, error) {
		switch args[0] {
		case "install":
			sawInstall = true
			// the throwaway manifest must pin the requested package
			manifest, err := os.ReadFile(filepath.Join(dir, "package.json"))
			require.NoError(t, err)
			require.Contains(t, string(manifest), `"chalk-consumer":"1.0.0"`)
			return nil, nil
		case "audit":
			// npm audit exits 1 when it finds vulnerabilities
			return auditOutput, errors.New("npm audit: exit status 1")
		default:
			t.Fatalf("unexpected npm command %q", strings.Join(args, " "))
			return nil, nil
		}
	})

	result, err := Audit(context.Background(), "chalk-consumer", "1.0.0")
	require.NoError(t, err)
	require.True(t, sawInstall)
	require.NotNil(t, result)
	require.Equal(t, 2, result.Metadata.Vulnerabilities.Critical)
	require.Equal(t, "critical", result.Vulnerabilities["chalk"].Severity)
}

func TestAuditUnpublishedPackage(t *testing.T) {
	stubNpm(t, func(_ string, args ...string) ([]byte, error) {
		if args[0] == "install" {
			return nil, errors.New("npm install: exit status 1")
		}
		t.Fatal("audit must not run when install fails")
		return nil, nil
	})

	result, err := Audit(context.Background(), "not-a-real-package", "")
	require.NoError(t, err)
	require.Nil(t, result)
}
