package compromiseddeps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes/specinfo"
	"github.com/mcpdock/catalog-validator/pkg/depscan"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
	"github.com/mcpdock/catalog-validator/pkg/testpassinterceptor"
)

func stubCheckPackage(t *testing.T, findings []depscan.Finding) *[]string {
	t.Helper()
	var checked []string
	original := checkPackage
	checkPackage = func(_ context.Context, name string, version string) []depscan.Finding {
		checked = append(checked, name+"@"+version)
		return findings
	}
	t.Cleanup(func() { checkPackage = original })
	return &checked
}

func setupPass(spec *specfile.ServerSpec) (*analysis.Pass, *testpassinterceptor.TestPassInterceptor) {
	var interceptor testpassinterceptor.TestPassInterceptor
	pass := &analysis.Pass{
		ResultOf: map[*analysis.Analyzer]interface{}{
			specinfo.Analyzer: spec,
		},
		Report: interceptor.ReportInterceptor(),
	}
	return pass, &interceptor
}

func TestCompromisedDependencyFound(t *testing.T) {
	stubCheckPackage(t, []depscan.Finding{
		{Package: "chalk", Version: "5.6.1", Type: "transitive", Depth: 2, Parent: "cli-kit"},
	})

	spec := &specfile.ServerSpec{
		Metadata: specfile.Metadata{Name: "weather", Protocol: "npx"},
		Spec:     specfile.PackageSpec{Package: "@example/weather-mcp", Version: "1.2.0"},
	}
	pass, interceptor := setupPass(spec)

	analyzerResult, err := Analyzer.Run(pass)
	require.NoError(t, err)

	findings := analyzerResult.([]depscan.Finding)
	require.Len(t, findings, 1)

	require.Len(t, interceptor.Diagnostics, 1)
	require.Equal(t, "compromised-dependency", interceptor.Diagnostics[0].Name)
	require.Equal(t, analysis.Error, interceptor.Diagnostics[0].Severity)
	require.Contains(t, interceptor.Diagnostics[0].Title, "chalk")
	require.Contains(t, interceptor.Diagnostics[0].Detail, "required by cli-kit")
}

func TestCleanDependencyTree(t *testing.T) {
	checked := stubCheckPackage(t, nil)

	spec := &specfile.ServerSpec{
		Metadata: specfile.Metadata{Name: "weather", Protocol: "npx"},
		Spec:     specfile.PackageSpec{Package: "@example/weather-mcp", Version: "1.2.0"},
	}
	pass, interceptor := setupPass(spec)

	_, err := Analyzer.Run(pass)
	require.NoError(t, err)
	require.Len(t, interceptor.Diagnostics, 0)
	require.Equal(t, []string{"@example/weather-mcp@1.2.0"}, *checked)
}

func TestNonNpmEntryIsSkipped(t *testing.T) {
	checked := stubCheckPackage(t, nil)

	spec := &specfile.ServerSpec{
		Metadata: specfile.Metadata{Name: "fetch", Protocol: "uvx"},
		Spec:     specfile.PackageSpec{Package: "mcp-server-fetch"},
	}
	pass, interceptor := setupPass(spec)

	analyzerResult, err := Analyzer.Run(pass)
	require.NoError(t, err)
	require.Nil(t, analyzerResult)
	require.Len(t, interceptor.Diagnostics, 0)
	require.Empty(t, *checked)
}

func TestNoSpec(t *testing.T) {
	checked := stubCheckPackage(t, nil)

	pass, interceptor := setupPass(nil)

	analyzerResult, err := Analyzer.Run(pass)
	require.NoError(t, err)
	require.Nil(t, analyzerResult)
	require.Len(t, interceptor.Diagnostics, 0)
	require.Empty(t, *checked)
}
