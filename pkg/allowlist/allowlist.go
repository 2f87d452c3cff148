// Package allowlist loads the security allowlist used to suppress known
// scanner findings and decides whether a single finding is covered by it.
//
// The allowlist has two tiers: a shared file that applies to every catalog
// entry, and a per-server block inside the entry's spec.yaml. Per-server
// entries overwrite shared entries with the same issue code.
package allowlist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcpdock/catalog-validator/pkg/logme"
)

const (
	techniquePrefix    = "AITech-"
	subtechniquePrefix = "AISubtech-"
)

// Entry is one allowlisted issue code with its justification.
type Entry struct {
	Code   string `yaml:"code"`
	Reason string `yaml:"reason"`
}

// SecurityConfig is the per-server security block of a catalog spec.yaml.
type SecurityConfig struct {
	InsecureIgnore bool    `yaml:"insecure_ignore"`
	AllowedIssues  []Entry `yaml:"allowed_issues"`
}

// Config is the merged allowlist for one scan run. Allowed maps issue codes
// to the recorded justification.
type Config struct {
	Allowed        map[string]string
	InsecureIgnore bool
}

type globalFile struct {
	AllowedIssues []Entry `yaml:"allowed_issues"`
}

type serverFile struct {
	Security *SecurityConfig `yaml:"security"`
}

// LoadGlobal reads the shared allowlist file. A missing or unreadable file is
// not fatal: the run simply proceeds without shared entries.
func LoadGlobal(path string) map[string]string {
	allowed := map[string]string{}

	if path == "" {
		return allowed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logme.Warnln(fmt.Sprintf("Could not load global config from %s: %s", path, err))
		}
		return allowed
	}

	var cfg globalFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logme.Warnln(fmt.Sprintf("Could not load global config from %s: %s", path, err))
		return allowed
	}

	for _, issue := range cfg.AllowedIssues {
		if issue.Code == "" {
			continue
		}
		reason := issue.Reason
		if reason == "" {
			reason = "Globally allowed"
		}
		allowed[issue.Code] = reason
	}

	return allowed
}

// Load merges the shared allowlist with the security block of the given
// spec.yaml. Either path may be empty or point to a missing file; both cases
// degrade to an empty tier rather than an error.
func Load(globalPath string, specPath string) *Config {
	cfg := &Config{
		Allowed: LoadGlobal(globalPath),
	}

	if specPath == "" {
		return cfg
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logme.Warnln(fmt.Sprintf("Could not load security config from %s: %s", specPath, err))
		}
		return cfg
	}

	var spec serverFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		logme.Warnln(fmt.Sprintf("Could not load security config from %s: %s", specPath, err))
		return cfg
	}

	if spec.Security == nil {
		return cfg
	}

	cfg.Merge(spec.Security)
	return cfg
}

// Merge overlays a per-server security block on top of the current entries.
// Same-coded entries take the per-server reason.
func (c *Config) Merge(sec *SecurityConfig) {
	if sec == nil {
		return
	}
	c.InsecureIgnore = sec.InsecureIgnore
	for _, issue := range sec.AllowedIssues {
		if issue.Code == "" {
			continue
		}
		reason := issue.Reason
		if reason == "" {
			reason = "Explicitly allowed"
		}
		c.Allowed[issue.Code] = reason
	}
}

// Resolve decides whether a finding identified by its technique and
// sub-technique codes is covered by the allowlist. Candidates are checked
// from most to least specific, first match wins:
//
//	AISubtech-1.1.1 matches an entry AISubtech-1.1.1 (exact)
//	AISubtech-1.1.1 matches an entry AITech-1.1 (parent)
//	AITech-1.1 matches an entry AITech-1.1 (exact)
//	AITech-1.1 matches an entry AITech-1 (grandparent)
//
// A finding with no codes is never allowed. Codes outside the known prefix
// scheme get no derived candidates and fail closed.
func Resolve(technique string, subtechnique string, allowed map[string]string) (bool, string) {
	var candidates []string

	if subtechnique != "" {
		candidates = append(candidates, subtechnique)
		if strings.HasPrefix(subtechnique, subtechniquePrefix) {
			// AISubtech-1.1.1 -> AITech-1.1
			parts := strings.Split(strings.TrimPrefix(subtechnique, subtechniquePrefix), ".")
			if len(parts) >= 2 {
				candidates = append(candidates, techniquePrefix+parts[0]+"."+parts[1])
			}
		}
	}

	if technique != "" {
		candidates = append(candidates, technique)
		if strings.HasPrefix(technique, techniquePrefix) {
			// AITech-1.1 -> AITech-1
			parts := strings.Split(strings.TrimPrefix(technique, techniquePrefix), ".")
			if len(parts) > 1 {
				candidates = append(candidates, techniquePrefix+parts[0])
			}
		}
	}

	for _, code := range candidates {
		if reason, ok := allowed[code]; ok {
			return true, reason
		}
	}

	return false, ""
}
