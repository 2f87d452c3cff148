package specfile

import (
	"encoding/json"
	"fmt"
)

// MCPServerConfig is one server entry in the mcp-scan configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// MCPConfig is the configuration document consumed by mcp-scan.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPConfigFor builds the mcp-scan configuration for one catalog entry. The
// protocol decides how the package is launched.
func MCPConfigFor(spec *ServerSpec, protocol string, serverName string) (*MCPConfig, error) {
	var server MCPServerConfig

	switch protocol {
	case "npx", "uvx":
		server = MCPServerConfig{
			Command: protocol,
			Args:    []string{spec.PackageRef()},
			Env:     map[string]string{},
		}
	case "go":
		server = MCPServerConfig{
			Command: "go",
			Args:    []string{"run", spec.Spec.Package},
			Env:     map[string]string{},
		}
	default:
		return nil, fmt.Errorf("unknown protocol %s", protocol)
	}

	return &MCPConfig{
		MCPServers: map[string]MCPServerConfig{
			serverName: server,
		},
	}, nil
}

// Render returns the indented JSON form of the configuration.
func (c *MCPConfig) Render() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
