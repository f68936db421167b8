//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "cardstudio"

var Default = Build

// Build compiles the cardstudio binary into the working directory
func Build() error {
	return sh.RunV("go", "build", "-o", binary, "./cmd/cardstudio")
}

// Test runs all unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over the module
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install builds and copies the binary to ~/go/bin
func Install() error {
	mg.Deps(Build)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to find home directory: %w", err)
	}
	dest := filepath.Join(home, "go", "bin")
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	return sh.Copy(filepath.Join(dest, binary), binary)
}

// Clean removes the built binary
func Clean() error {
	return sh.Rm(binary)
}
