package glama

import (
	"context"

	"github.com/mcpdock/catalog-validator/pkg/depscan"
	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/npmtool"
)

// DefaultBatchSize bounds how many packages one batch audits.
const DefaultBatchSize = 5

// CompromisedVuln is one advisory from the compromised set found by an audit.
type CompromisedVuln struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// AuditOutcome summarizes one package audit.
type AuditOutcome struct {
	Package                 string            `json:"package"`
	Version                 string            `json:"version"`
	TotalVulnerabilities    int               `json:"total_vulnerabilities"`
	CriticalVulnerabilities int               `json:"critical_vulnerabilities"`
	CompromisedPackages     []CompromisedVuln `json:"compromised_packages"`
	IsAffected              bool              `json:"is_affected"`
	ServerName              string            `json:"server_name,omitempty"`
	RepoURL                 string            `json:"repo_url,omitempty"`
}

// auditPackage is swapped out in tests.
var auditPackage = npmtool.Audit

// classify keeps only critical advisories for packages in the compromised
// set; those are the markers of the supply chain attack.
func classify(name string, version string, result *npmtool.AuditResult) *AuditOutcome {
	outcome := &AuditOutcome{
		Package:             name,
		Version:             version,
		CompromisedPackages: []CompromisedVuln{},
	}

	for vulnName, vuln := range result.Vulnerabilities {
		if depscan.IsCompromised(vulnName) && vuln.Severity == "critical" {
			outcome.CompromisedPackages = append(outcome.CompromisedPackages, CompromisedVuln{
				Name:     vulnName,
				Severity: vuln.Severity,
			})
		}
	}

	outcome.TotalVulnerabilities = result.Metadata.Vulnerabilities.Total
	outcome.CriticalVulnerabilities = result.Metadata.Vulnerabilities.Critical
	outcome.IsAffected = len(outcome.CompromisedPackages) > 0
	return outcome
}

// CheckPackages audits candidates in batches, skipping duplicates and names
// that never resolve to a published package. Guessed names that fail to
// install are dropped silently.
func CheckPackages(ctx context.Context, candidates []PackageCandidate, batchSize int) []AuditOutcome {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var outcomes []AuditOutcome
	checked := map[string]bool{}

	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		logme.DebugFln("checking batch %d (%d packages)", start/batchSize+1, end-start)

		for _, candidate := range candidates[start:end] {
			if candidate.Package == "" || checked[candidate.Package] {
				continue
			}
			checked[candidate.Package] = true

			result, err := auditPackage(ctx, candidate.Package, "latest")
			if err != nil {
				logme.DebugFln("audit of %s failed: %s", candidate.Package, err)
				continue
			}
			if result == nil {
				if !candidate.IsGuess {
					logme.DebugFln("skipping %s, not a published npm package", candidate.Package)
				}
				continue
			}

			outcome := classify(candidate.Package, "latest", result)
			outcome.ServerName = candidate.ServerName
			outcome.RepoURL = candidate.RepoURL
			outcomes = append(outcomes, *outcome)
		}
	}
	return outcomes
}
