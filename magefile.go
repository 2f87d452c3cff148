//go:build mage

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	// mg contains helpful utility functions, like Deps
)

type Build mg.Namespace
type Test mg.Namespace

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build.Cmds

var commands = []string{
	"scancheck",
	"catalogcheck",
	"mcpconfig",
	"scaiattest",
	"depcheck",
	"versionscan",
	"glamacheck",
}

func buildCmd(name string) error {
	os.Setenv("GO111MODULE", "on")
	log.Printf("Building %s...", name)
	return sh.RunV("go", "build", "-o", "bin/"+name, "./pkg/cmd/"+name)
}

func buildCmds() error {
	for _, name := range commands {
		if err := buildCmd(name); err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
	}
	return nil
}

func (Build) Cmds(ctx context.Context) {
	mg.Deps(
		Clean,
		buildCmds)
}

func (Build) CI(ctx context.Context) {
	mg.Deps(
		Build.Lint,
		Test.Verbose,
		Clean,
		buildCmds)
}

// Run linter against codebase
func (Build) Lint() error {
	os.Setenv("GO111MODULE", "on")
	log.Printf("Linting...")
	return sh.RunV("golangci-lint", "run", "./pkg/...")
}

func testVerbose() error {
	os.Setenv("GO111MODULE", "on")
	log.Printf("Testing...")
	return sh.RunV("go", "test", "-v", "./pkg/...")
}

func test() error {
	os.Setenv("GO111MODULE", "on")
	log.Printf("Testing...")
	return sh.RunV("go", "test", "./pkg/...")
}

// Run tests in verbose mode
func (Test) Verbose() {
	mg.Deps(
		testVerbose,
	)
}

// Run tests in normal mode
func (Test) Default() {
	mg.Deps(
		test,
	)
}

// Clean removes built files
func Clean() error {
	log.Printf("Cleaning all")
	return os.RemoveAll("./bin")
}
