package passes

import (
	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/compromiseddeps"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/scanoutput"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/securityscan"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/specinfo"
)

// Analyzers lists every check in run order. The runner resolves Requires
// edges, the order here only decides tie-breaks.
var Analyzers = []*analysis.Analyzer{
	specinfo.Analyzer,
	scanoutput.Analyzer,
	securityscan.Analyzer,
	compromiseddeps.Analyzer,
}
