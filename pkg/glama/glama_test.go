package glama

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/mcpdock/catalog-validator/pkg/npmtool"
)

func TestResolveAPIKeyPriority(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "glama.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("file-key\n"), 0600))

	t.Setenv("GLAMA_API_KEY", "env-key")
	t.Setenv("GLAMA_API_KEY_FILE", keyFile)

	key, err := ResolveAPIKey("direct-key", keyFile)
	require.NoError(t, err)
	require.Equal(t, "direct-key", key)

	key, err = ResolveAPIKey("", keyFile)
	require.NoError(t, err)
	require.Equal(t, "file-key", key)

	key, err = ResolveAPIKey("", "")
	require.NoError(t, err)
	require.Equal(t, "env-key", key)

	t.Setenv("GLAMA_API_KEY", "")
	key, err = ResolveAPIKey("", "")
	require.NoError(t, err)
	require.Equal(t, "file-key", key)
}

func TestResolveAPIKeyMissing(t *testing.T) {
	t.Setenv("GLAMA_API_KEY", "")
	t.Setenv("GLAMA_API_KEY_FILE", "")

	_, err := ResolveAPIKey("", "")
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestServersPagination(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://glama.ai/api/mcp/v1/servers",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))

			if req.URL.Query().Get("after") == "cursor-1" {
				return httpmock.NewStringResponse(http.StatusOK, `{
					"servers": [{"name": "filesystem", "repository": {"url": "https://github.com/acme/filesystem"}}],
					"pageInfo": {"hasNextPage": false}
				}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{
				"servers": [{"name": "weather"}, {"name": "postgres"}],
				"pageInfo": {"hasNextPage": true, "endCursor": "cursor-1"}
			}`), nil
		})

	servers, err := NewClient("test-key").Servers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 3)
	require.Equal(t, "weather", servers[0].Name)
	require.Equal(t, "filesystem", servers[2].Name)
	require.Equal(t, "https://github.com/acme/filesystem", servers[2].Repository.URL)
}

func TestServersAPIError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://glama.ai/api/mcp/v1/servers",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "bad key"}`))

	_, err := NewClient("wrong-key").Servers(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestPackagesFromGitHubManifest(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	// main has no package.json, master does
	httpmock.RegisterResponder("GET",
		"https://raw.githubusercontent.com/acme/weather-server/main/package.json",
		httpmock.NewStringResponder(http.StatusNotFound, "404: Not Found"))
	httpmock.RegisterResponder("GET",
		"https://raw.githubusercontent.com/acme/weather-server/master/package.json",
		httpmock.NewStringResponder(http.StatusOK, `{"name": "@acme/weather-mcp", "version": "1.0.0"}`))

	candidates := PackagesFromGitHub(context.Background(), "https://github.com/acme/weather-server", "Weather")
	require.Len(t, candidates, 1)
	require.Equal(t, "@acme/weather-mcp", candidates[0].Package)
	require.False(t, candidates[0].IsGuess)
	require.Equal(t, "Weather", candidates[0].ServerName)
}

func TestPackagesFromGitHubGuesses(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterNoResponder(
		httpmock.NewStringResponder(http.StatusNotFound, "404: Not Found"))

	candidates := PackagesFromGitHub(context.Background(), "https://github.com/Acme/Files", "File Browser")
	require.Len(t, candidates, 5)
	for _, c := range candidates {
		require.True(t, c.IsGuess)
	}
	require.Equal(t, "files", candidates[0].Package)
	require.Equal(t, "@acme/files", candidates[1].Package)
	require.Equal(t, "file-browser", candidates[2].Package)
	require.Equal(t, "mcp-files", candidates[3].Package)
	require.Equal(t, "files-mcp", candidates[4].Package)
}

func TestPackagesFromGitHubRejectsNonGitHub(t *testing.T) {
	require.Nil(t, PackagesFromGitHub(context.Background(), "https://gitlab.com/acme/repo", "x"))
	require.Nil(t, PackagesFromGitHub(context.Background(), "https://github.com/undefined", "x"))
	require.Nil(t, PackagesFromGitHub(context.Background(), "", "x"))
}

func stubAudit(t *testing.T, fn func(name string) (*npmtool.AuditResult, error)) {
	t.Helper()
	original := auditPackage
	auditPackage = func(_ context.Context, name string, _ string) (*npmtool.AuditResult, error) {
		return fn(name)
	}
	t.Cleanup(func() { auditPackage = original })
}

func TestCheckPackagesClassifiesAndDeduplicates(t *testing.T) {
	var audited []string
	stubAudit(t, func(name string) (*npmtool.AuditResult, error) {
		audited = append(audited, name)
		switch name {
		case "affected-server":
			return &npmtool.AuditResult{
				Vulnerabilities: map[string]npmtool.Vulnerability{
					"chalk":    {Name: "chalk", Severity: "critical"},
					"minimist": {Name: "minimist", Severity: "moderate"},
				},
				Metadata: npmtool.AuditMetadata{
					Vulnerabilities: npmtool.AuditCounts{Critical: 1, Moderate: 1, Total: 2},
				},
			}, nil
		case "clean-server":
			return &npmtool.AuditResult{}, nil
		default:
			// unpublished guess
			return nil, nil
		}
	})

	candidates := []PackageCandidate{
		{ServerName: "Affected", Package: "affected-server", RepoURL: "https://github.com/a/b"},
		{ServerName: "Affected", Package: "affected-server"}, // duplicate
		{ServerName: "Clean", Package: "clean-server"},
		{ServerName: "Ghost", Package: "not-published", IsGuess: true},
	}

	outcomes := CheckPackages(context.Background(), candidates, 2)
	require.Equal(t, []string{"affected-server", "clean-server", "not-published"}, audited)
	require.Len(t, outcomes, 2)

	require.True(t, outcomes[0].IsAffected)
	require.Equal(t, 1, outcomes[0].CriticalVulnerabilities)
	require.Equal(t, 2, outcomes[0].TotalVulnerabilities)
	require.Len(t, outcomes[0].CompromisedPackages, 1)
	require.Equal(t, "chalk", outcomes[0].CompromisedPackages[0].Name)
	require.Equal(t, "Affected", outcomes[0].ServerName)

	require.False(t, outcomes[1].IsAffected)
	require.Empty(t, outcomes[1].CompromisedPackages)
}
