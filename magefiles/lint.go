//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import "github.com/magefile/mage/sh"

const binLint = "golangci-lint"

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Vet runs go vet over the default and alternate driver builds.
func Vet() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	for _, tag := range driverTags {
		if err := sh.RunV(binGo, "vet", "-tags", tag, "./..."); err != nil {
			return err
		}
	}
	return nil
}
