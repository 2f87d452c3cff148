// Package mcpscanner parses Cisco AI Defense mcp-scanner output and turns its
// findings into a pass/fail summary using the security allowlist.
package mcpscanner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/mcpdock/catalog-validator/pkg/allowlist"
)

// ErrNoJSON means the scanner output contained no JSON object at all.
var ErrNoJSON = errors.New("no JSON output found in scan results")

// Parse decodes scanner output. The scanner sometimes prints log lines before
// the JSON document and trailing text after it, so decoding starts at the
// first '{' and stops after the first complete JSON value.
func Parse(raw []byte) (*Output, error) {
	start := bytes.IndexByte(raw, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}

	var out Output
	dec := json.NewDecoder(bytes.NewReader(raw[start:]))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("could not parse scan results: %w", err)
	}

	return &out, nil
}

// items returns the scanned items regardless of which field name the scanner
// release used.
func (o *Output) items() []ScanResult {
	if len(o.ScanResults) > 0 {
		return o.ScanResults
	}
	if len(o.Tools) > 0 {
		return o.Tools
	}
	return o.Results
}

// Process classifies every taxonomy hit in the scan output as blocking or
// allowed. Fields absent from the output default to empty values; an item
// with no findings only bumps the scanned counter.
func Process(out *Output, allowed map[string]string) (toolsScanned int, blocking []Finding, allowedFound []Finding) {
	blocking = []Finding{}
	allowedFound = []Finding{}

	for _, item := range out.items() {
		itemType := item.ItemType
		if itemType == "" {
			itemType = "tool"
		}
		if itemType == "tool" || item.ToolName != nil {
			toolsScanned++
		}

		toolName := "unknown"
		if item.ToolName != nil {
			toolName = *item.ToolName
		}

		// map iteration order is random, sort for stable summaries
		analyzers := make([]string, 0, len(item.Findings))
		for name := range item.Findings {
			analyzers = append(analyzers, name)
		}
		sort.Strings(analyzers)

		for _, analyzerName := range analyzers {
			analyzerData := item.Findings[analyzerName]

			severity := analyzerData.Severity
			if severity == "" {
				severity = "UNKNOWN"
			}

			for _, taxonomy := range analyzerData.Taxonomies {
				message := taxonomy.Description
				if message == "" {
					message = fmt.Sprintf("%s: %s", taxonomy.TechniqueName, taxonomy.SubtechniqueName)
				}

				finding := Finding{
					Code:             taxonomy.Technique,
					Technique:        taxonomy.Technique,
					TechniqueName:    taxonomy.TechniqueName,
					Subtechnique:     taxonomy.Subtechnique,
					SubtechniqueName: taxonomy.SubtechniqueName,
					Severity:         severity,
					Category:         taxonomy.Category,
					Message:          message,
					ToolName:         toolName,
					Analyzer:         analyzerName,
				}

				isAllowed, reason := allowlist.Resolve(taxonomy.Technique, taxonomy.Subtechnique, allowed)
				if isAllowed {
					finding.AllowedReason = reason
					allowedFound = append(allowedFound, finding)
				} else {
					blocking = append(blocking, finding)
				}
			}
		}
	}

	return toolsScanned, blocking, allowedFound
}

// Summarize builds the summary document for one processed scan.
func Summarize(server string, out *Output, toolsScanned int, blocking []Finding, allowed []Finding) *Summary {
	summary := &Summary{
		Server:         server,
		ToolsScanned:   toolsScanned,
		BlockingIssues: blocking,
		BlockingCount:  len(blocking),
		AllowedIssues:  allowed,
		AllowedCount:   len(allowed),
	}
	if out != nil {
		summary.Analyzers = out.Analyzers
	}

	if len(blocking) > 0 {
		summary.Status = StatusFailed
	} else {
		summary.Status = StatusPassed
		summary.Message = "No blocking security issues detected"
	}

	return summary
}

// Degraded builds the summary for a scan whose output could not be used at
// all. With insecureIgnore the condition is reported as a warning and the run
// is treated as having scanned zero items; otherwise it is an error.
func Degraded(server string, reason string, insecureIgnore bool) *Summary {
	summary := &Summary{
		Server:         server,
		BlockingIssues: []Finding{},
		AllowedIssues:  []Finding{},
	}

	if insecureIgnore {
		summary.Status = StatusWarning
		summary.Message = fmt.Sprintf("%s (insecure_ignore is enabled)", reason)
	} else {
		summary.Status = StatusError
		summary.Message = reason
	}

	return summary
}
