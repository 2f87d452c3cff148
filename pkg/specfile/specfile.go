// Package specfile reads the spec.yaml files that make up the MCP server
// catalog. Entries live under {protocol}/{name}/spec.yaml where protocol is
// npx, uvx or go.
package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcpdock/catalog-validator/pkg/allowlist"
)

// DefaultRegistry is the image registry prefix used for catalog builds.
const DefaultRegistry = "ghcr.io/mcpdock/catalog"

var validProtocols = []string{"npx", "uvx", "go"}

// ServerSpec is one catalog entry.
type ServerSpec struct {
	Metadata   Metadata                  `yaml:"metadata"`
	Spec       PackageSpec               `yaml:"spec"`
	Provenance Provenance                `yaml:"provenance,omitempty"`
	Security   *allowlist.SecurityConfig `yaml:"security,omitempty"`
}

// Metadata contains basic information about the MCP server.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Protocol    string `yaml:"protocol"` // npx, uvx, go
}

// PackageSpec names the package to scan and containerize.
type PackageSpec struct {
	Package string `yaml:"package"`           // e.g. "@upstash/context7-mcp"
	Version string `yaml:"version,omitempty"` // e.g. "1.0.14"
}

// Provenance carries supply chain provenance information for the entry.
type Provenance struct {
	SigstoreURL       string `yaml:"sigstore_url,omitempty"`
	RepositoryURI     string `yaml:"repository_uri,omitempty"`
	RepositoryRef     string `yaml:"repository_ref,omitempty"`
	SignerIdentity    string `yaml:"signer_identity,omitempty"`
	RunnerEnvironment string `yaml:"runner_environment,omitempty"`
	CertIssuer        string `yaml:"cert_issuer,omitempty"`
}

// Load reads and validates a catalog entry. On a validation failure the
// parsed entry is returned alongside the error so callers that only need a
// fragment (such as the security block) can still use it.
func Load(path string) (*ServerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var spec ServerSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return &spec, err
	}

	return &spec, nil
}

// Validate checks the required fields of a catalog entry.
func (s *ServerSpec) Validate() error {
	if s.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if s.Metadata.Protocol == "" {
		return fmt.Errorf("metadata.protocol is required")
	}
	if s.Spec.Package == "" {
		return fmt.Errorf("spec.package is required")
	}

	for _, p := range validProtocols {
		if s.Metadata.Protocol == p {
			return nil
		}
	}
	return fmt.Errorf("invalid protocol %s, must be one of: %v", s.Metadata.Protocol, validProtocols)
}

// ValidatePath ensures a catalog path follows {protocol}/{name}/spec.yaml and
// does not escape the catalog root.
func ValidatePath(configPath string) error {
	cleanPath := filepath.Clean(configPath)

	if filepath.Base(cleanPath) != "spec.yaml" {
		return fmt.Errorf("config file must be named 'spec.yaml'")
	}

	for _, protocol := range validProtocols {
		if strings.HasPrefix(cleanPath, protocol+"/") {
			parts := strings.Split(cleanPath, "/")
			if len(parts) == 3 && parts[2] == "spec.yaml" {
				return nil
			}
		}
	}

	return fmt.Errorf("config file must follow the structure: {protocol}/{name}/spec.yaml where protocol is npx/, uvx/, or go/")
}

// PackageRef returns the package reference with its version pinned, e.g.
// "@upstash/context7-mcp@1.0.14". Version defaults to latest.
func (s *ServerSpec) PackageRef() string {
	version := s.Spec.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s@%s", s.Spec.Package, version)
}

// ImageTag returns the container image tag for the entry, following
// {registry}/{protocol}/{name}:{version}.
func (s *ServerSpec) ImageTag(registry string) string {
	if registry == "" {
		registry = DefaultRegistry
	}

	name := cleanPackageName(s.Metadata.Name)

	version := s.Spec.Version
	if version == "" {
		version = s.Metadata.Version
	}
	if version == "" {
		version = "latest"
	}

	return fmt.Sprintf("%s/%s/%s:%s", registry, s.Metadata.Protocol, name, version)
}

// cleanPackageName converts a package name to a valid container image name.
func cleanPackageName(packageName string) string {
	name := packageName
	name = strings.TrimPrefix(name, "@")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ToLower(name)
	name = strings.TrimPrefix(name, "-")

	if name == "" {
		name = "mcp-server"
	}

	return name
}
