package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mcpdock/catalog-validator/pkg/depscan"
	"github.com/mcpdock/catalog-validator/pkg/logme"
)

// versionscan checks the recent releases of an npm package for compromised
// dependencies and recommends the latest safe version.
func main() {
	var (
		limitFlag = flag.Int("limit", 15, "How many recent releases to analyze")
	)

	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "usage: versionscan [-limit N] <package>")
		os.Exit(1)
	}
	packageName := flag.Arg(0)

	fmt.Fprintf(os.Stderr, "analyzing the last %d releases of %s\n", *limitFlag, packageName)

	results, err := depscan.AnalyzeVersions(context.Background(), packageName, *limitFlag)
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't analyze %s: %w", packageName, err))
		os.Exit(1)
	}
	if len(results) == 0 {
		logme.Errorln(fmt.Errorf("no parseable releases found for %s", packageName))
		os.Exit(1)
	}

	unsafe := 0
	for _, result := range results {
		if result.Safe {
			fmt.Fprintf(os.Stderr, "%s%s@%s\n", color.GreenString("ok: "), packageName, result.Version)
			continue
		}

		unsafe++
		fmt.Fprintf(os.Stderr, "%s%s@%s\n", color.RedString("unsafe: "), packageName, result.Version)
		for _, dep := range result.Compromised {
			fmt.Fprintf(os.Stderr, "  - %s %s@%s\n", dep.Type, dep.Package, dep.Version)
		}
	}

	safe := depscan.LatestSafe(results)
	if safe == "" {
		fmt.Fprintf(os.Stderr, "%sall %d analyzed releases of %s are affected\n",
			color.RedString("error: "), len(results), packageName)
		os.Exit(1)
	}

	if unsafe > 0 {
		fmt.Fprintf(os.Stderr, "recommended version: %s@%s\n", packageName, safe)
	} else {
		fmt.Fprintf(os.Stderr, "%sall %d analyzed releases are safe, latest is %s\n",
			color.GreenString("ok: "), len(results), safe)
	}

	fmt.Fprintln(os.Stdout, safe)
}
