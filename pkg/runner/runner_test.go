package runner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
)

var enabledConfig = Config{Global: GlobalConfig{Enabled: true}}

func TestLinearDependencies(t *testing.T) {
	res := make(map[string]bool)
	first := &analysis.Analyzer{
		Name: "first",
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["first"] = true
			return true, nil
		},
	}
	second := &analysis.Analyzer{
		Name:     "second",
		Requires: []*analysis.Analyzer{first},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["second"] = true
			return true, nil
		},
	}
	third := &analysis.Analyzer{
		Name:     "third",
		Requires: []*analysis.Analyzer{second},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["third"] = true
			return true, nil
		},
	}
	fourth := &analysis.Analyzer{
		Name:     "fourth",
		Requires: []*analysis.Analyzer{third},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["fourth"] = true
			return nil, nil
		},
	}

	_, _ = Check([]*analysis.Analyzer{fourth}, analysis.CheckParams{}, enabledConfig, "")

	if len(res) != 4 {
		t.Fatal("unexpected results")
	}
}

func TestSharedParent(t *testing.T) {
	res := make(map[string]bool)

	parent := &analysis.Analyzer{
		Name: "parent",
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["parent"] = true
			return true, nil
		},
	}
	firstChild := &analysis.Analyzer{
		Name:     "firstChild",
		Requires: []*analysis.Analyzer{parent},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["firstChild"] = true
			return true, nil
		},
	}
	secondChild := &analysis.Analyzer{
		Name:     "secondChild",
		Requires: []*analysis.Analyzer{parent},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["secondChild"] = true
			return nil, nil
		},
	}

	_, _ = Check([]*analysis.Analyzer{firstChild, secondChild}, analysis.CheckParams{}, enabledConfig, "")

	if len(res) != 3 {
		t.Fatal("unexpected results")
	}
}

func TestCachedRun(t *testing.T) {
	res := make(map[string]bool)

	parent := &analysis.Analyzer{
		Name: "parent",
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["parent"] = true
			return true, nil
		},
	}
	firstChild := &analysis.Analyzer{
		Name:     "firstChild",
		Requires: []*analysis.Analyzer{parent},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["firstChild"] = true
			return true, nil
		},
	}
	secondChild := &analysis.Analyzer{
		Name:     "secondChild",
		Requires: []*analysis.Analyzer{firstChild},
		Run: func(pass *analysis.Pass) (interface{}, error) {
			res["secondChild"] = true
			return nil, nil
		},
	}

	_, _ = Check([]*analysis.Analyzer{parent, firstChild, secondChild, firstChild, secondChild, parent}, analysis.CheckParams{}, enabledConfig, "")

	if len(res) != 3 {
		t.Fatal("unexpected results", res)
	}
}

func newReportingAnalyzer(rule *analysis.Rule) *analysis.Analyzer {
	a := &analysis.Analyzer{
		Name:  "reporting",
		Rules: []*analysis.Rule{rule},
	}
	a.Run = func(pass *analysis.Pass) (interface{}, error) {
		pass.ReportResult(pass.AnalyzerName, rule, "something happened", "")
		return nil, nil
	}
	return a
}

func TestSeverityOverwrite(t *testing.T) {
	rule := &analysis.Rule{Name: "some-rule", Severity: analysis.Error}
	a := newReportingAnalyzer(rule)

	diags, err := Check([]*analysis.Analyzer{a}, analysis.CheckParams{}, enabledConfig, analysis.Warning)
	require.NoError(t, err)
	require.Len(t, diags["reporting"], 1)
	require.Equal(t, analysis.Warning, diags["reporting"][0].Severity)
}

func TestAnalyzerDisabledByConfig(t *testing.T) {
	rule := &analysis.Rule{Name: "some-rule", Severity: analysis.Error}
	a := newReportingAnalyzer(rule)

	disabled := false
	cfg := Config{
		Global: GlobalConfig{Enabled: true},
		Analyzers: map[string]AnalyzerConfig{
			"reporting": {Enabled: &disabled},
		},
	}

	diags, err := Check([]*analysis.Analyzer{a}, analysis.CheckParams{}, cfg, "")
	require.NoError(t, err)
	require.Len(t, diags, 0)
}

func TestServerException(t *testing.T) {
	rule := &analysis.Rule{Name: "some-rule", Severity: analysis.Error}
	a := newReportingAnalyzer(rule)

	cfg := Config{
		Global: GlobalConfig{Enabled: true},
		Analyzers: map[string]AnalyzerConfig{
			"reporting": {Exceptions: []string{"context7"}},
		},
	}

	diags, err := Check([]*analysis.Analyzer{a}, analysis.CheckParams{ServerName: "context7"}, cfg, "")
	require.NoError(t, err)
	require.Len(t, diags, 0)

	// the exception only covers the named server
	diags, err = Check([]*analysis.Analyzer{a}, analysis.CheckParams{ServerName: "other-server"}, cfg, "")
	require.NoError(t, err)
	require.Len(t, diags["reporting"], 1)
}
