// Package npmtool shells out to the npm CLI for registry lookups and audits.
// Every call has its own timeout; a failing call never aborts a batch.
package npmtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcpdock/catalog-validator/pkg/logme"
)

const (
	viewTimeout    = 10 * time.Second
	installTimeout = 30 * time.Second
	auditTimeout   = 10 * time.Second
)

// runNpm is swapped out in tests.
var runNpm = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "npm", args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		logme.DebugFln("npm %s failed: %s\n%s", strings.Join(args, " "), err, stderr.String())
		return out, fmt.Errorf("npm %s: %w", args[0], err)
	}
	return out, nil
}

// packageRef pins a version onto a package name when one is given.
func packageRef(name string, version string) string {
	if version == "" {
		return name
	}
	return fmt.Sprintf("%s@%s", name, version)
}

// View runs `npm view <pkg>[@version] <field> --json` and returns the raw
// JSON output. An empty result is returned as nil with no error: npm prints
// nothing for fields a package does not have.
func View(ctx context.Context, name string, version string, field string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, viewTimeout)
	defer cancel()

	out, err := runNpm(ctx, "", "view", packageRef(name, version), field, "--json")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	return out, nil
}

// Dependencies returns the direct dependencies of a package version. npm
// sometimes answers with a bare list of names instead of a map; those are
// mapped to the latest version.
func Dependencies(ctx context.Context, name string, version string, field string) (map[string]string, error) {
	out, err := View(ctx, name, version, field)
	if err != nil || out == nil {
		return nil, err
	}

	deps := map[string]string{}
	if err := json.Unmarshal(out, &deps); err == nil {
		return deps, nil
	}

	var names []string
	if err := json.Unmarshal(out, &names); err != nil {
		return nil, fmt.Errorf("unexpected npm view output for %s: %w", packageRef(name, version), err)
	}
	for _, depName := range names {
		deps[depName] = "latest"
	}
	return deps, nil
}

// Versions returns the published versions of a package, oldest first.
func Versions(ctx context.Context, name string) ([]string, error) {
	out, err := View(ctx, name, "", "versions")
	if err != nil || out == nil {
		return nil, err
	}

	var versions []string
	if err := json.Unmarshal(out, &versions); err != nil {
		// a package with a single release answers with a plain string
		var single string
		if err2 := json.Unmarshal(out, &single); err2 != nil {
			return nil, fmt.Errorf("unexpected npm view versions output for %s: %w", name, err)
		}
		versions = []string{single}
	}
	return versions, nil
}

// AuditResult is the subset of `npm audit --json` output the checks consume.
type AuditResult struct {
	Vulnerabilities map[string]Vulnerability `json:"vulnerabilities"`
	Metadata        AuditMetadata            `json:"metadata"`
}

type Vulnerability struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

type AuditMetadata struct {
	Vulnerabilities AuditCounts `json:"vulnerabilities"`
}

type AuditCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Audit installs a single dependency into a throwaway package.json (lockfile
// only, nothing hits node_modules) and runs `npm audit --json` on it. A
// package that cannot be installed returns nil with no error, matching how
// unpublished guesses are skipped.
func Audit(ctx context.Context, name string, version string) (*AuditResult, error) {
	if version == "" {
		version = "latest"
	}

	dir, err := os.MkdirTemp("", "npm_audit_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	manifest := map[string]any{
		"name":    "temp-audit",
		"version": "1.0.0",
		"dependencies": map[string]string{
			name: version,
		},
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), data, 0600); err != nil {
		return nil, err
	}

	installCtx, cancelInstall := context.WithTimeout(ctx, installTimeout)
	defer cancelInstall()
	if _, err := runNpm(installCtx, dir, "install", "--package-lock-only", "--silent"); err != nil {
		// package does not exist or cannot be resolved
		return nil, nil
	}

	auditCtx, cancelAudit := context.WithTimeout(ctx, auditTimeout)
	defer cancelAudit()
	// npm audit exits non-zero when it finds vulnerabilities, the JSON output
	// is still complete in that case
	out, _ := runNpm(auditCtx, dir, "audit", "--json")
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}

	var result AuditResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, nil
	}
	return &result, nil
}
