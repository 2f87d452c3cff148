package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/mcpdock/catalog-validator/pkg/glama"
	"github.com/mcpdock/catalog-validator/pkg/logme"
)

// resultsDocument is the JSON report written after a full directory audit.
type resultsDocument struct {
	ScanDate            string                   `json:"scan_date"`
	TotalServersChecked int                      `json:"total_servers_checked"`
	TotalPackagesFound  int                      `json:"total_npm_packages_found"`
	TotalVulnerable     int                      `json:"total_vulnerable"`
	Servers             []glama.PackageCandidate `json:"servers"`
	AuditResults        []glama.AuditOutcome     `json:"audit_results"`
}

// glamacheck audits every npm package behind the Glama MCP server directory
// for the September 2025 supply chain attack.
func main() {
	var (
		apiKeyFlag     = flag.String("api-key", "", "Glama API key")
		apiKeyFileFlag = flag.String("api-key-file", "", "Path to a file containing the Glama API key")
		outputFlag     = flag.String("output", "glama_mcp_audit_results.json", "Output file for the results document")
		batchSizeFlag  = flag.Int("batch-size", glama.DefaultBatchSize, "How many packages to audit per batch")
	)

	flag.Parse()

	apiKey, err := glama.ResolveAPIKey(*apiKeyFlag, *apiKeyFileFlag)
	if err != nil {
		logme.Errorln(err)
		fmt.Fprintln(os.Stderr, "provide a key via -api-key, -api-key-file, GLAMA_API_KEY or GLAMA_API_KEY_FILE")
		os.Exit(1)
	}

	ctx := context.Background()

	fmt.Fprintln(os.Stderr, "fetching MCP servers from the Glama directory...")
	servers, err := glama.NewClient(apiKey).Servers(ctx)
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't fetch servers: %w", err))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "found %d servers\n", len(servers))

	candidates := glama.CollectPackages(ctx, servers)
	if len(candidates) == 0 {
		logme.Errorln("no npm packages found behind the listed servers")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "found %d npm package candidates to audit\n", len(candidates))

	outcomes := glama.CheckPackages(ctx, candidates, *batchSizeFlag)

	report(outcomes)

	doc := resultsDocument{
		ScanDate:            time.Now().UTC().Format("2006-01-02"),
		TotalServersChecked: len(servers),
		TotalPackagesFound:  len(candidates),
		Servers:             candidates,
		AuditResults:        outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.IsAffected {
			doc.TotalVulnerable++
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't encode results: %w", err))
		os.Exit(1)
	}
	if err := os.WriteFile(*outputFlag, append(data, '\n'), 0644); err != nil {
		logme.Errorln(fmt.Errorf("couldn't write results: %w", err))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "detailed results saved to %s\n", *outputFlag)

	if doc.TotalVulnerable > 0 {
		os.Exit(1)
	}
}

func report(outcomes []glama.AuditOutcome) {
	var affected []glama.AuditOutcome
	for _, outcome := range outcomes {
		if outcome.IsAffected {
			affected = append(affected, outcome)
		}
	}

	fmt.Fprintf(os.Stderr, "\npackages successfully audited: %d\n", len(outcomes))

	if len(affected) == 0 {
		fmt.Fprintf(os.Stderr, "%sno packages affected by the npm supply chain attack\n",
			color.GreenString("ok: "))
		return
	}

	// most affected first
	sort.Slice(affected, func(i, j int) bool {
		return affected[i].CriticalVulnerabilities > affected[j].CriticalVulnerabilities
	})

	fmt.Fprintf(os.Stderr, "%s%d of %d audited packages are affected\n",
		color.RedString("error: "), len(affected), len(outcomes))
	for _, outcome := range affected {
		fmt.Fprintf(os.Stderr, "  %s (%d critical vulnerabilities)\n",
			outcome.Package, outcome.CriticalVulnerabilities)
		for _, comp := range outcome.CompromisedPackages {
			fmt.Fprintf(os.Stderr, "    - %s (%s)\n", comp.Name, comp.Severity)
		}
	}

	if len(outcomes) > 0 {
		rate := float64(len(affected)) / float64(len(outcomes)) * 100
		fmt.Fprintf(os.Stderr, "compromise rate: %.1f%%\n", rate)
	}
}
