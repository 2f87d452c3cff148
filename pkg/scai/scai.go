// Package scai builds in-toto attestations with a SCAI (Software supply
// Chain Attribute Integrity) predicate for MCP security scans.
//
// Reference: https://github.com/in-toto/attestation/blob/main/spec/predicates/scai.md
package scai

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// StatementType is the in-toto Statement layer type.
	StatementType = "https://in-toto.io/Statement/v1"
	// PredicateType is the SCAI predicate version this package emits.
	PredicateType = "https://in-toto.io/attestation/scai/v0.3"

	// DefaultScannerURI points at the scanner whose results are attested.
	DefaultScannerURI = "https://github.com/cisco-ai-defense/mcp-scanner"

	producerName = "catalog-ci"
	scannerName  = "cisco-ai-mcp-scanner"
)

// Statement is the complete in-toto Statement with a SCAI predicate.
type Statement struct {
	Type          string    `json:"_type"`
	Subject       []Subject `json:"subject"`
	PredicateType string    `json:"predicateType"`
	Predicate     Predicate `json:"predicate"`
}

type Subject struct {
	Name   string            `json:"name"`
	Digest map[string]string `json:"digest"`
}

type Predicate struct {
	Attributes []Attribute `json:"attributes"`
	Producer   Producer    `json:"producer"`
}

type Attribute struct {
	Attribute  string     `json:"attribute"`
	Conditions Conditions `json:"conditions"`
	Evidence   Evidence   `json:"evidence"`
}

// Conditions carries the scan facts backing the attested attribute.
type Conditions struct {
	Scanner          string   `json:"scanner"`
	Analyzers        []string `json:"analyzers"`
	ToolsScanned     int      `json:"toolsScanned"`
	BlockingIssues   int      `json:"blockingIssues"`
	AllowedIssues    int      `json:"allowedIssues"`
	ScanDate         string   `json:"scanDate"`
	ConfigFile       string   `json:"configFile"`
	ScannerVersion   string   `json:"scannerVersion,omitempty"`
	ScannerURI       string   `json:"scannerUri,omitempty"`
	SourceRepository string   `json:"sourceRepository,omitempty"`
}

type Evidence struct {
	Name      string            `json:"name"`
	Digest    map[string]string `json:"digest"`
	URI       string            `json:"uri"`
	MediaType string            `json:"mediaType"`
}

type Producer struct {
	URI    string            `json:"uri"`
	Name   string            `json:"name"`
	Digest map[string]string `json:"digest"`
}

// Params are the inputs for one attestation.
type Params struct {
	SummaryPath      string   // scan summary file, hashed as evidence
	ImageName        string   // full image name the scan attests to
	ImageDigest      string   // image digest, with or without the sha256: prefix
	ConfigFile       string   // catalog spec.yaml the scan was configured from
	CommitSHA        string
	RunURL           string
	ProducerURI      string
	Analyzers        []string // analyzers reported by the scanner, defaults to yara
	Status           string   // scan summary status
	ToolsScanned     int
	BlockingCount    int
	AllowedCount     int
	ScannerVersion   string
	ScannerURI       string
	SourceRepository string
}

// now is swapped out in tests.
var now = time.Now

// AttributeForStatus maps a scan summary status onto the attested attribute.
func AttributeForStatus(status string) string {
	switch status {
	case "passed":
		return "MCP_SECURITY_SCAN_PASSED"
	case "warning":
		return "MCP_SECURITY_SCAN_WARNING"
	default:
		return "MCP_SECURITY_SCAN_FAILED"
	}
}

// Build assembles the attestation statement for one scan.
func Build(params Params) (*Statement, error) {
	evidenceHash, err := fileSHA256(params.SummaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash scan summary: %w", err)
	}

	analyzers := params.Analyzers
	if len(analyzers) == 0 {
		analyzers = []string{"yara"}
	}

	scannerURI := params.ScannerURI
	if scannerURI == "" {
		scannerURI = DefaultScannerURI
	}

	conditions := Conditions{
		Scanner:          scannerName,
		Analyzers:        analyzers,
		ToolsScanned:     params.ToolsScanned,
		BlockingIssues:   params.BlockingCount,
		AllowedIssues:    params.AllowedCount,
		ScanDate:         now().UTC().Format("2006-01-02T15:04:05Z"),
		ConfigFile:       params.ConfigFile,
		ScannerVersion:   params.ScannerVersion,
		ScannerURI:       scannerURI,
		SourceRepository: params.SourceRepository,
	}

	return &Statement{
		Type: StatementType,
		Subject: []Subject{
			{
				Name:   params.ImageName,
				Digest: map[string]string{"sha256": strings.TrimPrefix(params.ImageDigest, "sha256:")},
			},
		},
		PredicateType: PredicateType,
		Predicate: Predicate{
			Attributes: []Attribute{
				{
					Attribute:  AttributeForStatus(params.Status),
					Conditions: conditions,
					Evidence: Evidence{
						Name:      "scan-summary.json",
						Digest:    map[string]string{"sha256": evidenceHash},
						URI:       params.RunURL,
						MediaType: "application/json",
					},
				},
			},
			Producer: Producer{
				URI:    params.ProducerURI,
				Name:   producerName,
				Digest: map[string]string{"gitCommit": params.CommitSHA},
			},
		},
	}, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
