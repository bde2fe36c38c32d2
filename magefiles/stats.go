//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs are never walked by Stats.
var skipDirs = map[string]bool{
	"vendor":    true,
	".git":      true,
	binaryDir:   true,
	"magefiles": true,
	"_examples": true,
	"testdata":  true,
}

// Stats prints Go lines of code per top-level package directory.
func Stats() error {
	prod := map[string]int{}
	tests := map[string]int{}

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		if strings.HasSuffix(path, "_test.go") {
			tests[dir] += count
		} else {
			prod[dir] += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(prod))
	for dir := range prod {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var totalProd, totalTest int
	for _, dir := range dirs {
		fmt.Printf("%-24s %6d %6d\n", dir, prod[dir], tests[dir])
		totalProd += prod[dir]
		totalTest += tests[dir]
	}
	fmt.Printf("%-24s %6d %6d\n", "total", totalProd, totalTest)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
