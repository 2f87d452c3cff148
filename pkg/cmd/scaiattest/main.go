package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mcpdock/catalog-validator/pkg/logme"
	"github.com/mcpdock/catalog-validator/pkg/mcpscanner"
	"github.com/mcpdock/catalog-validator/pkg/scai"
	"github.com/mcpdock/catalog-validator/pkg/specfile"
)

// scaiattest builds an in-toto SCAI attestation out of a scan summary:
// scaiattest [flags] <scan-summary.json> <image-name> <image-digest>
func main() {
	var (
		configFlag         = flag.String("config-file", "", "Path to the catalog entry spec.yaml")
		commitFlag         = flag.String("commit-sha", "", "Git commit SHA of the catalog revision")
		runURLFlag         = flag.String("run-url", "", "URL of the CI run producing the attestation")
		producerFlag       = flag.String("producer-uri", "", "Full URI of the attestation producer")
		scannerVersionFlag = flag.String("scanner-version", "", "Version of the scanner")
		scannerURIFlag     = flag.String("scanner-uri", scai.DefaultScannerURI, "URI to the scanner source")
		outputFlag         = flag.String("output", "", "Output file path (default: stdout)")
		validateFlag       = flag.Bool("validate", false, "Validate the attestation structure before writing it")
	)

	flag.Parse()

	if *configFlag == "" {
		logme.Errorln("no config file specified")
		flag.Usage()
		os.Exit(1)
	}

	if len(flag.Args()) != 3 {
		fmt.Fprintln(os.Stderr, "usage: scaiattest [flags] <scan-summary.json> <image-name> <image-digest>")
		os.Exit(1)
	}

	summaryPath := flag.Arg(0)
	imageName := flag.Arg(1)
	imageDigest := flag.Arg(2)

	summary, err := loadSummary(summaryPath)
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't read scan summary: %w", err))
		os.Exit(1)
	}

	// provenance is optional, an unreadable spec only loses sourceRepository
	var sourceRepository string
	if spec, err := specfile.Load(*configFlag); spec != nil {
		sourceRepository = spec.Provenance.RepositoryURI
		if sourceRepository != "" {
			logme.Infoln("source repository: ", sourceRepository)
		}
	} else if err != nil {
		logme.Warnln(fmt.Sprintf("could not read spec.yaml for provenance: %s", err))
	}

	statement, err := scai.Build(scai.Params{
		SummaryPath:      summaryPath,
		ImageName:        imageName,
		ImageDigest:      imageDigest,
		ConfigFile:       *configFlag,
		CommitSHA:        *commitFlag,
		RunURL:           *runURLFlag,
		ProducerURI:      *producerFlag,
		Analyzers:        summary.Analyzers,
		Status:           string(summary.Status),
		ToolsScanned:     summary.ToolsScanned,
		BlockingCount:    summary.BlockingCount,
		AllowedCount:     summary.AllowedCount,
		ScannerVersion:   *scannerVersionFlag,
		ScannerURI:       *scannerURIFlag,
		SourceRepository: sourceRepository,
	})
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't build attestation: %w", err))
		os.Exit(1)
	}

	if *validateFlag {
		if errs := scai.Validate(statement); len(errs) > 0 {
			logme.Errorln("attestation validation failed:")
			for _, e := range errs {
				logme.Errorln("  - ", e)
			}
			os.Exit(1)
		}
		logme.Infoln("attestation is valid")
	}

	output, err := json.MarshalIndent(statement, "", "  ")
	if err != nil {
		logme.Errorln(fmt.Errorf("couldn't encode attestation: %w", err))
		os.Exit(1)
	}

	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, append(output, '\n'), 0644); err != nil {
			logme.Errorln(fmt.Errorf("couldn't write attestation: %w", err))
			os.Exit(1)
		}
		logme.Infoln("attestation written to ", *outputFlag)
		return
	}

	fmt.Fprintln(os.Stdout, string(output))
}

func loadSummary(path string) (*mcpscanner.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var summary mcpscanner.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("invalid JSON in scan summary: %w", err)
	}
	return &summary, nil
}
