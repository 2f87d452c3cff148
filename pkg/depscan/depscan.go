// Package depscan checks npm packages against the set of packages
// compromised in the September 8, 2025 npm supply chain attack.
package depscan

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/npmtool"
)

// CompromisedPackages is the fixed set of packages published with malicious
// code during the attack.
var CompromisedPackages = map[string]bool{
	"debug":               true,
	"chalk":               true,
	"ansi-styles":         true,
	"strip-ansi":          true,
	"supports-color":      true,
	"color-convert":       true,
	"wrap-ansi":           true,
	"ansi-regex":          true,
	"color-name":          true,
	"is-arrayish":         true,
	"error-ex":            true,
	"color-string":        true,
	"simple-swizzle":      true,
	"has-ansi":            true,
	"supports-hyperlinks": true,
	"chalk-template":      true,
	"backslash":           true,
	"slice-ansi":          true,
}

// maxDepth bounds the dependency walk; anything deeper means too many
// registry calls for too little signal.
const maxDepth = 2

// Finding is one compromised package spotted in a dependency tree.
type Finding struct {
	Package string `json:"package"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type"` // direct or transitive
	Depth   int    `json:"depth"`
	Parent  string `json:"parent,omitempty"`
}

// IsCompromised reports whether a package name is in the compromised set.
// Scoped names are compared by their base name.
func IsCompromised(name string) bool {
	base := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		base = name[idx+1:]
	}
	return CompromisedPackages[base]
}

// dependencies is swapped out in tests.
var dependencies = npmtool.Dependencies

// CheckPackage walks a package and its dependencies looking for compromised
// packages. Registry failures for individual packages are logged and skipped
// so one flaky lookup does not hide the rest of the tree.
func CheckPackage(ctx context.Context, name string, version string) []Finding {
	checked := map[string]bool{}
	return checkPackage(ctx, name, version, 0, "", checked)
}

func checkPackage(ctx context.Context, name string, version string, depth int, parent string, checked map[string]bool) []Finding {
	key := name
	if version != "" {
		key = fmt.Sprintf("%s@%s", name, version)
	}
	if checked[key] {
		return nil
	}
	checked[key] = true

	var findings []Finding

	if IsCompromised(name) {
		findingType := "transitive"
		if depth == 0 {
			findingType = "direct"
		}
		findings = append(findings, Finding{
			Package: name,
			Version: version,
			Type:    findingType,
			Depth:   depth,
			Parent:  parent,
		})
	}

	if depth >= maxDepth {
		return findings
	}

	deps, err := dependencies(ctx, name, version, "dependencies")
	if err != nil {
		logme.DebugFln("could not fetch dependencies of %s: %s", key, err)
		return findings
	}

	for depName, depVersion := range deps {
		findings = append(findings, checkPackage(ctx, depName, depVersion, depth+1, name, checked)...)
	}

	return findings
}
