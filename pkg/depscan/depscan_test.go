package depscan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubDependencies replaces the registry lookup for one test. The stub is
// keyed on "name@version" (or just the name when no version is pinned) and
// holds regular dependencies only; peer dependency queries answer empty.
func stubDependencies(t *testing.T, tree map[string]map[string]string) {
	t.Helper()
	original := dependencies
	dependencies = func(_ context.Context, name string, version string, field string) (map[string]string, error) {
		if field == "peerDependencies" {
			return nil, nil
		}
		require.Equal(t, "dependencies", field)
		key := name
		if version != "" {
			key = name + "@" + version
		}
		return tree[key], nil
	}
	t.Cleanup(func() { dependencies = original })
}

func TestIsCompromised(t *testing.T) {
	require.True(t, IsCompromised("chalk"))
	require.True(t, IsCompromised("@scoped/chalk"))
	require.False(t, IsCompromised("left-pad"))
	require.False(t, IsCompromised("chalky"))
}

func TestCheckPackageDirect(t *testing.T) {
	stubDependencies(t, nil)

	findings := CheckPackage(context.Background(), "chalk", "5.6.1")
	require.Len(t, findings, 1)
	require.Equal(t, "chalk", findings[0].Package)
	require.Equal(t, "direct", findings[0].Type)
	require.Equal(t, 0, findings[0].Depth)
	require.Empty(t, findings[0].Parent)
}

func TestCheckPackageTransitive(t *testing.T) {
	stubDependencies(t, map[string]map[string]string{
		"my-server@1.0.0": {"cli-kit": "2.0.0"},
		"cli-kit@2.0.0":   {"ansi-styles": "6.2.2", "yargs": "17.0.0"},
	})

	findings := CheckPackage(context.Background(), "my-server", "1.0.0")
	require.Len(t, findings, 1)
	require.Equal(t, "ansi-styles", findings[0].Package)
	require.Equal(t, "transitive", findings[0].Type)
	require.Equal(t, 2, findings[0].Depth)
	require.Equal(t, "cli-kit", findings[0].Parent)
}

func TestCheckPackageDepthLimit(t *testing.T) {
	// chalk sits at depth 3, one past the walk limit
	stubDependencies(t, map[string]map[string]string{
		"my-server": {"a": "1"},
		"a@1":       {"b": "1"},
		"b@1":       {"chalk": "5.6.1"},
	})

	findings := CheckPackage(context.Background(), "my-server", "")
	require.Empty(t, findings)
}

func TestCheckPackageDeduplicates(t *testing.T) {
	// debug is reachable through two parents but reported once
	stubDependencies(t, map[string]map[string]string{
		"my-server": {"a": "1", "b": "1"},
		"a@1":       {"debug": "4.4.2"},
		"b@1":       {"debug": "4.4.2"},
	})

	findings := CheckPackage(context.Background(), "my-server", "")
	require.Len(t, findings, 1)
	require.Equal(t, "debug", findings[0].Package)
}

func TestCheckPackageRegistryFailureIsSkipped(t *testing.T) {
	original := dependencies
	dependencies = func(_ context.Context, name string, _ string, _ string) (map[string]string, error) {
		if name == "my-server" {
			return map[string]string{"broken": "1", "strip-ansi": "7.1.1"}, nil
		}
		if name == "broken" {
			return nil, errors.New("registry timeout")
		}
		return nil, nil
	}
	t.Cleanup(func() { dependencies = original })

	findings := CheckPackage(context.Background(), "my-server", "")
	require.Len(t, findings, 1)
	require.Equal(t, "strip-ansi", findings[0].Package)
}

func stubVersions(t *testing.T, versions []string, err error) {
	t.Helper()
	original := versionsList
	versionsList = func(_ context.Context, _ string) ([]string, error) {
		return versions, err
	}
	t.Cleanup(func() { versionsList = original })
}

func TestAnalyzeVersions(t *testing.T) {
	stubVersions(t, []string{"1.0.0", "1.2.0", "1.1.0", "not-a-version"}, nil)

	original := dependencies
	dependencies = func(_ context.Context, _ string, version string, field string) (map[string]string, error) {
		if version == "1.2.0" && field == "dependencies" {
			return map[string]string{"chalk": "^5.6.1"}, nil
		}
		if version == "1.1.0" && field == "peerDependencies" {
			return map[string]string{"wrap-ansi": "^9.0.0"}, nil
		}
		return nil, nil
	}
	t.Cleanup(func() { dependencies = original })

	results, err := AnalyzeVersions(context.Background(), "my-server", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// newest first, unparseable releases dropped
	require.Equal(t, "1.2.0", results[0].Version)
	require.False(t, results[0].Safe)
	require.Equal(t, "chalk", results[0].Compromised[0].Package)
	require.Equal(t, "dependency", results[0].Compromised[0].Type)

	require.Equal(t, "1.1.0", results[1].Version)
	require.False(t, results[1].Safe)
	require.Equal(t, "peer", results[1].Compromised[0].Type)

	require.Equal(t, "1.0.0", results[2].Version)
	require.True(t, results[2].Safe)

	require.Equal(t, "1.0.0", LatestSafe(results))
}

func TestAnalyzeVersionsLimit(t *testing.T) {
	stubVersions(t, []string{"0.1.0", "0.2.0", "0.3.0", "0.4.0"}, nil)
	stubDependencies(t, nil)

	results, err := AnalyzeVersions(context.Background(), "my-server", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "0.4.0", results[0].Version)
	require.Equal(t, "0.3.0", results[1].Version)
}

func TestAnalyzeVersionsRegistryError(t *testing.T) {
	stubVersions(t, nil, errors.New("registry down"))

	_, err := AnalyzeVersions(context.Background(), "my-server", 0)
	require.Error(t, err)
}

func TestLatestSafeAllAffected(t *testing.T) {
	require.Empty(t, LatestSafe([]VersionResult{
		{Version: "2.0.0", Safe: false},
		{Version: "1.0.0", Safe: false},
	}))
}
