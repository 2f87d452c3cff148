package depscan

import (
	"context"
	"sort"

	version "github.com/hashicorp/go-version"

	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/npmtool"
)

// VersionFinding is one compromised dependency of a specific release.
type VersionFinding struct {
	Package string `json:"package"`
	Version string `json:"version"`
	Type    string `json:"type"` // dependency or peer
}

// VersionResult is the verdict for one release of the analyzed package.
type VersionResult struct {
	Version     string           `json:"version"`
	Safe        bool             `json:"safe"`
	Compromised []VersionFinding `json:"compromised,omitempty"`
}

// versionsList is swapped out in tests.
var versionsList = npmtool.Versions

// AnalyzeVersions checks the most recent releases of a package, newest
// first, for compromised direct and peer dependencies. Releases that do not
// parse as versions are skipped.
func AnalyzeVersions(ctx context.Context, name string, limit int) ([]VersionResult, error) {
	raw, err := versionsList(ctx, name)
	if err != nil {
		return nil, err
	}

	parsed := make(version.Collection, 0, len(raw))
	for _, v := range raw {
		parsedVersion, err := version.NewVersion(v)
		if err != nil {
			logme.DebugFln("skipping unparseable version %s of %s: %s", v, name, err)
			continue
		}
		parsed = append(parsed, parsedVersion)
	}
	sort.Sort(parsed)

	if limit > 0 && len(parsed) > limit {
		parsed = parsed[len(parsed)-limit:]
	}

	results := make([]VersionResult, 0, len(parsed))
	for i := len(parsed) - 1; i >= 0; i-- {
		results = append(results, checkVersion(ctx, name, parsed[i].Original()))
	}
	return results, nil
}

func checkVersion(ctx context.Context, name string, release string) VersionResult {
	result := VersionResult{Version: release, Safe: true}

	for field, findingType := range map[string]string{
		"dependencies":     "dependency",
		"peerDependencies": "peer",
	} {
		deps, err := dependencies(ctx, name, release, field)
		if err != nil {
			logme.DebugFln("could not fetch %s of %s@%s: %s", field, name, release, err)
			continue
		}
		for depName, depVersion := range deps {
			if IsCompromised(depName) {
				result.Compromised = append(result.Compromised, VersionFinding{
					Package: depName,
					Version: depVersion,
					Type:    findingType,
				})
				result.Safe = false
			}
		}
	}

	// stable order for reports, map iteration is random
	sort.Slice(result.Compromised, func(i, j int) bool {
		if result.Compromised[i].Type != result.Compromised[j].Type {
			return result.Compromised[i].Type < result.Compromised[j].Type
		}
		return result.Compromised[i].Package < result.Compromised[j].Package
	})

	return result
}

// LatestSafe returns the most recent safe release out of an analysis result,
// or "" when every analyzed release is affected. Results are newest first.
func LatestSafe(results []VersionResult) string {
	for _, r := range results {
		if r.Safe {
			return r.Version
		}
	}
	return ""
}
