package mcpscanner

// Output is the document produced by the Cisco AI Defense mcp-scanner.
// Only the fields the processor needs are mapped; everything else in the
// document is ignored. Older scanner releases used "tools" or "results"
// instead of "scan_results".
type Output struct {
	ServerURL   string       `json:"server_url"`
	ScanResults []ScanResult `json:"scan_results"`
	Tools       []ScanResult `json:"tools"`
	Results     []ScanResult `json:"results"`
	Analyzers   []string     `json:"requested_analyzers"`
}

// ScanResult is one scanned item, usually a tool exposed by the MCP server.
// ToolName is a pointer because the scanned-items count distinguishes a
// missing tool_name key from one present with an empty value.
type ScanResult struct {
	Status   string                      `json:"status"`
	IsSafe   bool                        `json:"is_safe"`
	ItemType string                      `json:"item_type"`
	ToolName *string                     `json:"tool_name"`
	Findings map[string]AnalyzerFindings `json:"findings"`
}

// AnalyzerFindings holds what a single analyzer reported for one item.
type AnalyzerFindings struct {
	Severity      string     `json:"severity"`
	ThreatNames   []string   `json:"threat_names"`
	ThreatSummary string     `json:"threat_summary"`
	TotalFindings int        `json:"total_findings"`
	Taxonomies    []Taxonomy `json:"mcp_taxonomies"`
}

// Taxonomy maps a raw analyzer hit onto the scanner's issue taxonomy.
type Taxonomy struct {
	Category         string `json:"scanner_category"`
	Technique        string `json:"aitech"`
	TechniqueName    string `json:"aitech_name"`
	Subtechnique     string `json:"aisubtech"`
	SubtechniqueName string `json:"aisubtech_name"`
	Description      string `json:"description"`
}

// Finding is one classified security issue, as it appears in the summary.
type Finding struct {
	Code             string `json:"code"`
	Technique        string `json:"aitech"`
	TechniqueName    string `json:"aitech_name"`
	Subtechnique     string `json:"aisubtech"`
	SubtechniqueName string `json:"aisubtech_name"`
	Severity         string `json:"severity"`
	Category         string `json:"category"`
	Message          string `json:"message"`
	ToolName         string `json:"tool_name"`
	Analyzer         string `json:"analyzer"`
	AllowedReason    string `json:"allowed_reason,omitempty"`
}

// Status is the overall outcome of processing one scan.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Summary is the JSON document written for CI consumption. Status is failed
// iff BlockingIssues is non-empty; warning and error cover degraded input
// conditions.
type Summary struct {
	Server         string    `json:"server"`
	Status         Status    `json:"status"`
	ToolsScanned   int       `json:"tools_scanned"`
	BlockingIssues []Finding `json:"blocking_issues"`
	BlockingCount  int       `json:"blocking_count"`
	AllowedIssues  []Finding `json:"allowed_issues"`
	AllowedCount   int       `json:"allowed_count"`
	Analyzers      []string  `json:"analyzers,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// Failed reports whether the summary should fail the CI step.
func (s *Summary) Failed() bool {
	return s.Status == StatusFailed || s.Status == StatusError
}
