// Package compromiseddeps walks the dependency tree of an npm catalog entry
// looking for packages compromised in the September 2025 supply chain attack.
package compromiseddeps

import (
	"context"
	"fmt"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/specinfo"
	"github.com/mcpdock/catalog-validator/pkg/depscan"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

var (
	compromisedDependency = &analysis.Rule{Name: "compromised-dependency", Severity: analysis.Error}
)

var Analyzer = &analysis.Analyzer{
	Name:     "compromiseddeps",
	Requires: []*analysis.Analyzer{specinfo.Analyzer},
	Run:      run,
	Rules:    []*analysis.Rule{compromisedDependency},
	ReadmeInfo: analysis.ReadmeInfo{
		Name:         "Compromised Dependencies",
		Description:  "Checks npm entries for known-compromised packages in their dependency tree.",
		Dependencies: "specinfo",
	},
}

// checkPackage is swapped out in tests.
var checkPackage = depscan.CheckPackage

// run returns []depscan.Finding. Non-npm entries are skipped: the
// compromised set is npm-specific.
func run(pass *analysis.Pass) (interface{}, error) {
	spec, _ := pass.ResultOf[specinfo.Analyzer].(*specfile.ServerSpec)
	if spec == nil || spec.Spec.Package == "" {
		return nil, nil
	}
	if spec.Metadata.Protocol != "npx" {
		return nil, nil
	}

	findings := checkPackage(context.Background(), spec.Spec.Package, spec.Spec.Version)

	for _, finding := range findings {
		detail := fmt.Sprintf("%s dependency at depth %d", finding.Type, finding.Depth)
		if finding.Parent != "" {
			detail += fmt.Sprintf(", required by %s", finding.Parent)
		}
		pass.ReportResult(
			pass.AnalyzerName,
			compromisedDependency,
			fmt.Sprintf("%s depends on compromised package %s", spec.Spec.Package, finding.Package),
			detail,
		)
	}

	return findings, nil
}
