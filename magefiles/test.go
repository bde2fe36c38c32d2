//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// driverTags are the build tags that swap the SQLite driver.
var driverTags = []string{"cgo_sqlite", "wasm_sqlite"}

// All runs every package's tests with the default driver.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every package's tests with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Drivers reruns the packages that touch SQLite under each alternate driver.
func (Test) Drivers() error {
	for _, tag := range driverTags {
		fmt.Println("driver:", tag)
		if err := sh.RunV(binGo, "test", "-tags", tag,
			"./internal/sqlite/...", "./internal/migrate/...", "./internal/service/..."); err != nil {
			return err
		}
	}
	return nil
}

// Golden regenerates the IPC golden files.
func (Test) Golden() error {
	return sh.RunV(binGo, "test", "./internal/ipc/...", "-update")
}
