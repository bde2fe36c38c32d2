//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for biblia using Mage.
//
// Usage:
//
//	mage build          Compile the biblia binary to bin/
//	mage test:all       Run every package's tests
//	mage test:drivers   Run the store tests under each SQLite driver
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install biblia to GOPATH/bin
//	mage stats          Print Go lines of code
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "biblia"
	binaryDir  = "bin"
	cmdDir     = "./cmd/biblia"
)

// Build compiles the biblia binary to bin/ with the default pure-Go driver.
func Build() error {
	return build("")
}

// BuildCgo compiles biblia against the cgo SQLite driver.
func BuildCgo() error {
	return build("cgo_sqlite")
}

func build(tags string) error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v"}
	if tags != "" {
		args = append(args, "-tags", tags)
	}
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunV(binGo, args...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
