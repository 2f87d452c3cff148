package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

// mcpconfig renders the MCP client configuration used to launch a catalog
// server for scanning: mcpconfig <spec.yaml> <protocol> <server-name>
func main() {
	flag.Parse()

	if len(flag.Args()) != 3 {
		fmt.Fprintln(os.Stderr, "usage: mcpconfig <spec.yaml> <protocol> <server-name>")
		os.Exit(1)
	}

	specPath := flag.Arg(0)
	protocol := flag.Arg(1)
	serverName := flag.Arg(2)

	spec, err := specfile.Load(specPath)
	if spec == nil {
		logme.Errorln(fmt.Errorf("couldn't read spec file: %w", err))
		os.Exit(1)
	}
	if err != nil {
		// launching only needs spec.package, tolerate other validation issues
		logme.Debugln("spec file has validation issues: ", err)
	}
	if spec.Spec.Package == "" {
		logme.Errorln(fmt.Errorf("invalid spec structure in %s: spec.package is missing", specPath))
		os.Exit(1)
	}

	cfg, err := specfile.MCPConfigFor(spec, protocol, serverName)
	if err != nil {
		logme.Errorln(err)
		os.Exit(1)
	}

	output, err := cfg.Render()
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't encode MCP config: %w", err))
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, string(output))
}
