// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"strings"
	"sync"
)

// Embedded compressed name lists
//
//go:embed data/first_names.txt.gz
var firstNamesGZ []byte

//go:embed data/last_names.txt.gz
var lastNamesGZ []byte

// nameDatabase holds lowercase names for O(1) lookups
type nameDatabase struct {
	first map[string]bool
	last  map[string]bool
}

var (
	names     *nameDatabase
	namesOnce sync.Once
	namesErr  error
)

// loadNames decompresses the embedded lists once per process
func loadNames() (*nameDatabase, error) {
	namesOnce.Do(func() {
		db := &nameDatabase{
			first: make(map[string]bool, 256),
			last:  make(map[string]bool, 128),
		}
		if err := readNameList(firstNamesGZ, db.first); err != nil {
			namesErr = fmt.Errorf("failed to load first names: %w", err)
			return
		}
		if err := readNameList(lastNamesGZ, db.last); err != nil {
			namesErr = fmt.Errorf("failed to load last names: %w", err)
			return
		}
		names = db
	})
	return names, namesErr
}

func readNameList(compressed []byte, into map[string]bool) error {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if len(name) >= 2 {
			into[name] = true
		}
	}
	return scanner.Err()
}
