package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"

	"github.com/mcpdock/catalog-validator/pkg/depscan"
	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

// depcheck walks every npm entry in the catalog and checks its dependency
// tree for packages compromised in the September 2025 supply chain attack.
func main() {
	var (
		catalogFlag = flag.String("catalog", ".", "Path to the catalog root")
	)

	flag.Parse()

	pattern := filepath.Join(*catalogFlag, "npx", "*", "spec.yaml")
	specPaths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't list catalog entries: %w", err))
		os.Exit(1)
	}
	if len(specPaths) == 0 {
		logme.Errorln(fmt.Errorf("no npx entries found under %s", *catalogFlag))
		os.Exit(1)
	}
	sort.Strings(specPaths)

	fmt.Fprintf(os.Stderr, "checking %d npm catalog entries\n", len(specPaths))

	ctx := context.Background()
	affected := 0

	for _, specPath := range specPaths {
		spec, err := specfile.Load(specPath)
		if spec == nil || spec.Spec.Package == "" {
			logme.Warnln(fmt.Sprintf("skipping %s: %s", specPath, err))
			continue
		}

		name := spec.Metadata.Name
		if name == "" {
			name = filepath.Base(filepath.Dir(specPath))
		}

		fmt.Fprintf(os.Stderr, "checking %s (%s)...\n", name, spec.PackageRef())
		findings := depscan.CheckPackage(ctx, spec.Spec.Package, spec.Spec.Version)

		if len(findings) == 0 {
			fmt.Fprintf(os.Stderr, "%s%s is clean\n", color.GreenString("ok: "), name)
			continue
		}

		affected++
		for _, finding := range findings {
			fmt.Fprintf(os.Stderr, "%s%s pulls in compromised package %s (%s, depth %d)\n",
				color.RedString("error: "), name, finding.Package, finding.Type, finding.Depth)
			if finding.Parent != "" {
				fmt.Fprintf(os.Stderr, "  required by %s\n", finding.Parent)
			}
		}
	}

	if affected > 0 {
		fmt.Fprintf(os.Stderr, "%s%d of %d entries are affected\n",
			color.RedString("error: "), affected, len(specPaths))
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%sno compromised dependencies found in %d entries\n",
		color.GreenString("ok: "), len(specPaths))
}
