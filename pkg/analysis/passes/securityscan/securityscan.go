// Package securityscan classifies scanner findings against the merged
// allowlist and produces the scan summary for a catalog entry.
package securityscan

import (
	"fmt"

	"github.com/mcpdock/catalog-validator/pkg/allowlist"
	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/scanoutput"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/specinfo"
	"github.com/mcpdock/catalog-validator/pkg/mcpscanner"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

var (
	blockingIssue = &analysis.Rule{Name: "blocking-security-issue", Severity: analysis.Error}
	allowedIssue  = &analysis.Rule{Name: "allowlisted-security-issue", Severity: analysis.OK}
	scanDegraded  = &analysis.Rule{Name: "scan-degraded", Severity: analysis.Warning}
)

var Analyzer = &analysis.Analyzer{
	Name:     "securityscan",
	Requires: []*analysis.Analyzer{specinfo.Analyzer, scanoutput.Analyzer},
	Run:      run,
	Rules:    []*analysis.Rule{blockingIssue, allowedIssue, scanDegraded},
	ReadmeInfo: analysis.ReadmeInfo{
		Name:         "Security Scan",
		Description:  "Checks scanner findings against the global and per-server allowlists.",
		Dependencies: "specinfo, scanoutput",
	},
}

// run returns a *mcpscanner.Summary, or nil when no scan output was given.
func run(pass *analysis.Pass) (interface{}, error) {
	result, ok := pass.ResultOf[scanoutput.Analyzer].(*scanoutput.Result)
	if !ok || result == nil {
		return nil, nil
	}

	spec, _ := pass.ResultOf[specinfo.Analyzer].(*specfile.ServerSpec)

	serverName := pass.CheckParams.ServerName
	if serverName == "" && spec != nil {
		serverName = spec.Metadata.Name
	}

	if result.Output == nil {
		summary := mcpscanner.Degraded(serverName, result.FailureReason, result.InsecureIgnore)
		if result.InsecureIgnore {
			pass.ReportResult(
				pass.AnalyzerName,
				scanDegraded,
				fmt.Sprintf("scan for %s is degraded", serverName),
				summary.Message,
			)
		}
		// the fatal case was already reported by scanoutput
		return summary, nil
	}

	cfg := &allowlist.Config{Allowed: allowlist.LoadGlobal(pass.CheckParams.GlobalAllowlistFile)}
	if spec != nil {
		cfg.Merge(spec.Security)
	}

	toolsScanned, blocking, allowed := mcpscanner.Process(result.Output, cfg.Allowed)
	summary := mcpscanner.Summarize(serverName, result.Output, toolsScanned, blocking, allowed)

	for _, finding := range blocking {
		pass.ReportResult(
			pass.AnalyzerName,
			blockingIssue,
			fmt.Sprintf("%s: %s (%s)", finding.ToolName, finding.Message, finding.Code),
			fmt.Sprintf("severity %s reported by %s", finding.Severity, finding.Analyzer),
		)
	}

	if allowedIssue.ReportAll {
		for _, finding := range allowed {
			pass.ReportResult(
				pass.AnalyzerName,
				allowedIssue,
				fmt.Sprintf("%s: %s (%s) allowed", finding.ToolName, finding.Message, finding.Code),
				finding.AllowedReason,
			)
		}
	}

	return summary, nil
}
