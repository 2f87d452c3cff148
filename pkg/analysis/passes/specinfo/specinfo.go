package specinfo

import (
	"os"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

var (
	specFileNotFound = &analysis.Rule{Name: "spec-file-not-found", Severity: analysis.Warning}
	specFileInvalid  = &analysis.Rule{Name: "spec-file-invalid", Severity: analysis.Error}
)

var Analyzer = &analysis.Analyzer{
	Name:  "specinfo",
	Run:   run,
	Rules: []*analysis.Rule{specFileNotFound, specFileInvalid},
	ReadmeInfo: analysis.ReadmeInfo{
		Name:        "Spec Info",
		Description: "Loads and validates the catalog entry spec.yaml.",
	},
}

// run returns a *specfile.ServerSpec, or nil when no spec file is given or
// the file cannot be used. Checks that can work without a spec treat a nil
// result as "no spec available".
func run(pass *analysis.Pass) (interface{}, error) {
	specPath := pass.CheckParams.SpecFile
	if specPath == "" {
		return nil, nil
	}

	if _, err := os.Stat(specPath); err != nil {
		pass.ReportResult(
			pass.AnalyzerName,
			specFileNotFound,
			"spec file not found",
			specPath,
		)
		return nil, nil
	}

	spec, err := specfile.Load(specPath)
	if err != nil {
		pass.ReportResult(
			pass.AnalyzerName,
			specFileInvalid,
			"spec file is invalid",
			err.Error(),
		)
		// a partially parsed spec still carries the security block
	}
	if spec == nil {
		return nil, nil
	}

	return spec, nil
}
