// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pii-anonymizer/internal/detector/patterns"
)

func newEntitiesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entity types the built-in recognizers detect",
		Long: `List the entity types the built-in pattern recognizers detect, with examples.

The presidio engine detects whatever the configured analyzer supports; see the
Presidio documentation for its list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if global.noColor {
				color.NoColor = true
			}
			printEntities(cmd.OutOrStdout(), patterns.New().Entities())
			return nil
		},
	}
}

func printEntities(w io.Writer, infos []patterns.EntityInfo) {
	name := color.New(color.FgCyan, color.Bold)
	muted := color.New(color.FgHiBlack)

	for _, info := range infos {
		fmt.Fprintf(w, "%s  %s\n", name.Sprintf("%-16s", info.Name), info.Description)
		if len(info.Examples) > 0 {
			fmt.Fprintf(w, "%-16s  %s\n", "", muted.Sprint("e.g. "+strings.Join(info.Examples, ", ")))
		}
	}
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
