//go:build mage

// Package main contains Mage build targets for nutriscan.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "nutriscan"
	cmdPkg  = "./cmd/nutriscan"
)

var Default = Build

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	ldflags := fmt.Sprintf("-X main.version=%s", version)
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests. Integration tests are skipped.
func Test() error {
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// Integration runs the full test suite.
func Integration() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// CI runs lint and the full test suite, then builds.
func CI() {
	mg.SerialDeps(Lint, Integration, Build)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
