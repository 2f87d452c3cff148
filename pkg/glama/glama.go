// Package glama talks to the Glama MCP server directory and resolves the
// npm package behind each listed server.
package glama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mcpdock/catalog-validator/pkg/logme"
)

const (
	// DefaultBaseURL is the public Glama MCP directory API.
	DefaultBaseURL = "https://glama.ai/api/mcp/v1"

	pageTimeout     = 10 * time.Second
	manifestTimeout = 3 * time.Second
)

// ErrNoAPIKey is returned when no key source yields a key.
var ErrNoAPIKey = errors.New("no Glama API key found")

// ResolveAPIKey finds an API key, in priority order: the key given directly,
// the key file given directly, the GLAMA_API_KEY environment variable, the
// file named by GLAMA_API_KEY_FILE. A named key file that cannot be read is
// a warning, the next source is tried.
func ResolveAPIKey(apiKey string, apiKeyFile string) (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if apiKeyFile != "" {
		if key := readKeyFile(apiKeyFile); key != "" {
			return key, nil
		}
	}
	if key := os.Getenv("GLAMA_API_KEY"); key != "" {
		return key, nil
	}
	if envFile := os.Getenv("GLAMA_API_KEY_FILE"); envFile != "" {
		if key := readKeyFile(envFile); key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

func readKeyFile(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		logme.WarnF("API key file not readable: %s\n", path)
		return ""
	}
	return strings.TrimSpace(string(content))
}

// Server is one directory entry.
type Server struct {
	Name       string      `json:"name"`
	Repository *Repository `json:"repository"`
}

type Repository struct {
	URL string `json:"url"`
}

type serversPage struct {
	Servers  []Server `json:"servers"`
	PageInfo pageInfo `json:"pageInfo"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Client pages through the Glama directory.
type Client struct {
	BaseURL string
	APIKey  string
}

// NewClient returns a client against the public API.
func NewClient(apiKey string) *Client {
	return &Client{BaseURL: DefaultBaseURL, APIKey: apiKey}
}

// Servers fetches the full server listing, following the cursor until the
// API reports no further pages.
func (c *Client) Servers(ctx context.Context) ([]Server, error) {
	var all []Server
	cursor := ""

	for {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Servers...)
		logme.DebugFln("fetched %d servers (total %d)", len(page.Servers), len(all))

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			return all, nil
		}
		cursor = page.PageInfo.EndCursor
	}
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (*serversPage, error) {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	endpoint := c.BaseURL + "/servers"
	if cursor != "" {
		endpoint += "?after=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from Glama API: %d", resp.StatusCode)
	}

	var page serversPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PackageCandidate maps a directory server to an npm package name. IsGuess
// marks names derived from naming conventions rather than a package.json.
type PackageCandidate struct {
	ServerName string `json:"server_name"`
	Package    string `json:"npm_package"`
	RepoURL    string `json:"repo_url"`
	IsGuess    bool   `json:"is_guess,omitempty"`
}

// rawBranches are tried in order when fetching package.json from GitHub.
var rawBranches = []string{"main", "master", "develop", "dev"}

// PackagesFromGitHub resolves the npm package behind a GitHub repository. It
// fetches package.json from raw.githubusercontent.com across common branch
// names; when none exists it falls back to naming-convention guesses, all
// marked IsGuess.
func PackagesFromGitHub(ctx context.Context, repoURL string, serverName string) []PackageCandidate {
	if repoURL == "" || repoURL == "https://github.com/undefined" {
		return nil
	}
	if !strings.Contains(repoURL, "github.com") {
		return nil
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(repoURL, "https://github.com/"), "/"), "/")
	if len(parts) < 2 {
		return nil
	}
	owner, repo := parts[0], parts[1]

	for _, branch := range rawBranches {
		name, err := manifestName(ctx, owner, repo, branch)
		if err != nil {
			logme.DebugFln("no package.json on %s/%s@%s: %s", owner, repo, branch, err)
			continue
		}
		if name != "" {
			return []PackageCandidate{{ServerName: serverName, Package: name, RepoURL: repoURL}}
		}
	}

	var candidates []PackageCandidate
	for _, guess := range packageGuesses(owner, repo, serverName) {
		candidates = append(candidates, PackageCandidate{
			ServerName: serverName,
			Package:    guess,
			RepoURL:    repoURL,
			IsGuess:    true,
		})
	}
	return candidates
}

func manifestName(ctx context.Context, owner string, repo string, branch string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, manifestTimeout)
	defer cancel()

	rawURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/package.json", owner, repo, branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return "", err
	}
	return manifest.Name, nil
}

// packageGuesses lists conventional names MCP servers publish under.
func packageGuesses(owner string, repo string, serverName string) []string {
	repo = strings.ToLower(repo)
	owner = strings.ToLower(owner)

	guesses := []string{
		repo,
		fmt.Sprintf("@%s/%s", owner, repo),
	}
	if serverName != "" {
		guesses = append(guesses, strings.ReplaceAll(strings.ToLower(serverName), " ", "-"))
	}
	guesses = append(guesses, "mcp-"+repo, repo+"-mcp")

	seen := map[string]bool{}
	var unique []string
	for _, g := range guesses {
		if !seen[g] {
			seen[g] = true
			unique = append(unique, g)
		}
	}
	return unique
}

// CollectPackages resolves package candidates for every listed server that
// points at a GitHub repository.
func CollectPackages(ctx context.Context, servers []Server) []PackageCandidate {
	var candidates []PackageCandidate
	for _, server := range servers {
		if server.Repository == nil || server.Repository.URL == "" {
			continue
		}
		candidates = append(candidates, PackagesFromGitHub(ctx, server.Repository.URL, server.Name)...)
	}
	return candidates
}
