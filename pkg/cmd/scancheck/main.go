package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mcpdock/catalog-validator/pkg/allowlist"
	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/mcpscanner"
)

func main() {
	var (
		serverFlag    = flag.String("server", "", "Name of the MCP server the scan output belongs to")
		configFlag    = flag.String("config", "", "Path to the catalog entry spec.yaml (per-server allowlist and insecure_ignore)")
		allowlistFlag = flag.String("global-allowlist", "global_allowed_issues.yaml", "Path to the catalog-wide allowlist file")
		outputFlag    = flag.String("output", "", "Also write the summary JSON to this file")
	)

	flag.Parse()

	if *serverFlag == "" {
		logme.Errorln("no server name specified")
		flag.Usage()
		os.Exit(1)
	}

	if len(flag.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "missing scan output file")
		os.Exit(1)
	}
	scanOutputFile := flag.Args()[0]

	logme.Debugln("server: ", *serverFlag)
	logme.Debugln("config file: ", *configFlag)
	logme.Debugln("global allowlist: ", *allowlistFlag)
	logme.Debugln("scan output file: ", scanOutputFile)

	cfg := allowlist.Load(*allowlistFlag, *configFlag)

	summary := process(*serverFlag, scanOutputFile, cfg)

	report(summary)

	output, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't encode summary: %w", err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, string(output))

	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, append(output, '\n'), 0644); err != nil {
			logme.Errorln(fmt.Errorf("couldn't write summary file: %w", err))
			os.Exit(1)
		}
	}

	if summary.Failed() {
		os.Exit(1)
	}
}

func process(serverName string, scanOutputFile string, cfg *allowlist.Config) *mcpscanner.Summary {
	raw, err := os.ReadFile(scanOutputFile)
	if err != nil {
		reason := fmt.Sprintf("Scan output file not found: %s", scanOutputFile)
		return mcpscanner.Degraded(serverName, reason, cfg.InsecureIgnore)
	}

	// a whitespace-only file is an empty scan, not an unparseable one
	if len(bytes.TrimSpace(raw)) == 0 {
		return mcpscanner.Degraded(serverName, "Scan failed to produce output", cfg.InsecureIgnore)
	}

	output, err := mcpscanner.Parse(raw)
	if err != nil {
		reason := fmt.Sprintf("Could not parse scan results: %s", err)
		if errors.Is(err, mcpscanner.ErrNoJSON) {
			reason = "No JSON output found in scan results"
		}
		return mcpscanner.Degraded(serverName, reason, cfg.InsecureIgnore)
	}

	toolsScanned, blocking, allowed := mcpscanner.Process(output, cfg.Allowed)
	return mcpscanner.Summarize(serverName, output, toolsScanned, blocking, allowed)
}

// report prints the human-readable result to stderr for CI logs. The summary
// JSON itself goes to stdout.
func report(summary *mcpscanner.Summary) {
	switch summary.Status {
	case mcpscanner.StatusError:
		fmt.Fprintf(os.Stderr, "%s%s\n", color.RedString("error: "), summary.Message)
		return
	case mcpscanner.StatusWarning:
		fmt.Fprintf(os.Stderr, "%s%s\n", color.YellowString("warning: "), summary.Message)
		return
	}

	if summary.Status == mcpscanner.StatusFailed {
		fmt.Fprintf(os.Stderr, "%ssecurity issues found in %s that are not allowlisted:\n",
			color.RedString("error: "), summary.Server)
		for _, issue := range summary.BlockingIssues {
			fmt.Fprintf(os.Stderr, "  - [%s] %s\n", issue.Code, issue.Message)
			if issue.ToolName != "" {
				fmt.Fprintf(os.Stderr, "    tool: %s\n", issue.ToolName)
			}
		}
	}

	for _, issue := range summary.AllowedIssues {
		fmt.Fprintf(os.Stderr, "%s[%s] %s (allowed: %s)\n",
			color.GreenString("ok: "), issue.Code, issue.Message, issue.AllowedReason)
	}

	if summary.Status == mcpscanner.StatusPassed {
		if summary.AllowedCount > 0 {
			fmt.Fprintf(os.Stderr, "%sall issues are allowlisted - build can proceed (%d tools scanned)\n",
				color.GreenString("ok: "), summary.ToolsScanned)
		} else {
			fmt.Fprintf(os.Stderr, "%sno security issues found in %s (%d tools scanned)\n",
				color.GreenString("ok: "), summary.Server, summary.ToolsScanned)
		}
	}
}
