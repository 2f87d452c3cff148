package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mcpdock/catalog-validator/pkg/analysis"
	"github.com/mcpdock/catalog-validator/pkg/analysis/output"
	"github.com/mcpdock/catalog-validator/pkg/analysis/passes"
	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/runner"
)

func main() {
	var (
		strictFlag    = flag.Bool("strict", false, "If set, catalogcheck returns non-zero exit code for warnings")
		configFlag    = flag.String("config", "", "Path to the checks configuration file")
		scanFlag      = flag.String("scan-output", "", "Path to the security scanner output for this entry")
		allowlistFlag = flag.String("global-allowlist", "", "Path to the catalog-wide allowlist file")
		serverFlag    = flag.String("server", "", "Catalog name of the server (defaults to the entry directory name)")
	)

	flag.Parse()

	logme.Debugln("strict mode: ", *strictFlag)
	logme.Debugln("config file: ", *configFlag)
	logme.Debugln("scan output: ", *scanFlag)
	logme.Debugln("spec file: ", flag.Arg(0))

	if len(flag.Args()) == 0 {
		fmt.Fprintln(os.Stderr, "missing spec.yaml path")
		os.Exit(1)
	}
	specPath := flag.Args()[0]

	cfg := runner.Config{Global: runner.GlobalConfig{Enabled: true}}
	if *configFlag != "" {
		var err error
		cfg, err = readConfigFile(*configFlag)
		if err != nil {
			logme.Errorln(fmt.Errorf("couldn't read configuration: %w", err))
			os.Exit(1)
		}
	}

	serverName := *serverFlag
	if serverName == "" {
		serverName = filepath.Base(filepath.Dir(specPath))
	}

	params := analysis.CheckParams{
		SpecFile:            specPath,
		SpecDir:             filepath.Dir(specPath),
		ScanOutputFile:      *scanFlag,
		ServerName:          serverName,
		GlobalAllowlistFile: *allowlistFlag,
	}

	diags, err := runner.Check(passes.Analyzers, params, cfg, "")
	if err != nil {
		logme.Errorln(fmt.Errorf("check failed: %w", err))
		os.Exit(1)
	}

	if cfg.Global.JSONOutput {
		data, err := output.NewJSONMarshaler(serverName).Marshal(diags)
		if err != nil {
			logme.Errorln(fmt.Errorf("couldn't encode diagnostics: %w", err))
			os.Exit(1)
		}
		fmt.Fprintln(os.Stdout, string(data))
		os.Exit(output.ExitCode(*strictFlag, diags))
	}

	data, err := output.MarshalCLI(diags)
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't format diagnostics: %w", err))
		os.Exit(1)
	}
	fmt.Fprint(os.Stderr, string(data))

	os.Exit(output.ExitCode(*strictFlag, diags))
}

func readConfigFile(path string) (runner.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return runner.Config{}, err
	}

	var config runner.Config
	if err := yaml.Unmarshal(b, &config); err != nil {
		return runner.Config{}, err
	}

	return config, nil
}
