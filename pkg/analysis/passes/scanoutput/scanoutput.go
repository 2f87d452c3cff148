// Package scanoutput locates and parses the security scanner JSON for a
// catalog entry. Scanners log freely before emitting JSON, so the parser
// starts at the first brace.
package scanoutput

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/specinfo"
	"github.com/mcpdock/catalog-validator/pkg/mcpscanner"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

var (
	scanOutputMissing     = &analysis.Rule{Name: "scan-output-missing", Severity: analysis.Error}
	scanOutputEmpty       = &analysis.Rule{Name: "scan-output-empty", Severity: analysis.Error}
	scanOutputUnparseable = &analysis.Rule{Name: "scan-output-unparseable", Severity: analysis.Error}
	scanFailureIgnored    = &analysis.Rule{Name: "scan-failure-ignored", Severity: analysis.Warning}
)

var Analyzer = &analysis.Analyzer{
	Name:     "scanoutput",
	Requires: []*analysis.Analyzer{specinfo.Analyzer},
	Run:      run,
	Rules: []*analysis.Rule{
		scanOutputMissing,
		scanOutputEmpty,
		scanOutputUnparseable,
		scanFailureIgnored,
	},
	ReadmeInfo: analysis.ReadmeInfo{
		Name:         "Scan Output",
		Description:  "Parses the security scanner JSON output.",
		Dependencies: "specinfo",
	},
}

// Result carries the parsed scanner output, or the failure that prevented
// parsing. InsecureIgnore reflects the per-server security config and
// decides whether a failure degrades the run instead of failing it.
type Result struct {
	Output         *mcpscanner.Output
	FailureReason  string
	InsecureIgnore bool
}

func run(pass *analysis.Pass) (interface{}, error) {
	path := pass.CheckParams.ScanOutputFile
	if path == "" {
		return nil, nil
	}

	result := &Result{}
	if spec, ok := pass.ResultOf[specinfo.Analyzer].(*specfile.ServerSpec); ok && spec != nil && spec.Security != nil {
		result.InsecureIgnore = spec.Security.InsecureIgnore
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		result.FailureReason = fmt.Sprintf("Scan output file not found: %s", path)
		report(pass, scanOutputMissing, result)
		return result, nil
	}

	// a whitespace-only file is an empty scan, not an unparseable one
	if len(bytes.TrimSpace(raw)) == 0 {
		result.FailureReason = "Scan failed to produce output"
		report(pass, scanOutputEmpty, result)
		return result, nil
	}

	output, err := mcpscanner.Parse(raw)
	if err != nil {
		if errors.Is(err, mcpscanner.ErrNoJSON) {
			result.FailureReason = "No JSON output found in scan results"
		} else {
			result.FailureReason = fmt.Sprintf("Could not parse scan results: %s", err)
		}
		report(pass, scanOutputUnparseable, result)
		return result, nil
	}

	result.Output = output
	return result, nil
}

func report(pass *analysis.Pass, rule *analysis.Rule, result *Result) {
	if result.InsecureIgnore {
		pass.ReportResult(
			pass.AnalyzerName,
			scanFailureIgnored,
			result.FailureReason+" (insecure_ignore is enabled)",
			"the scan failure is ignored because insecure_ignore is set for this server",
		)
		return
	}
	pass.ReportResult(pass.AnalyzerName, rule, result.FailureReason, "")
}
