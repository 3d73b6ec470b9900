// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/runbook"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// runRunbookList prints a table of embedded runbooks. Runbooks ship in
// the binary so they are available when the stack, and therefore any
// wiki behind it, is down.
func runRunbookList(cmd *cobra.Command, args []string) {
	start := time.Now()

	books, err := runbook.List()
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "runbook list", start, nil, false, err))
	}

	type runbookItem struct {
		Slug    string `json:"slug"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	items := make([]runbookItem, 0, len(books))
	for _, b := range books {
		items = append(items, runbookItem{Slug: b.Slug, Title: b.Title, Summary: b.Summary})
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Title("Beacon Runbooks")
		for _, b := range books {
			ux.ServiceStatus(b.Slug, ux.IconBullet, b.Title)
		}
		ux.Muted(fmt.Sprintf("Use `beacon runbook show <slug>` to read one (%d available)", len(books)))
	}
	os.Exit(OutputResult(outputConfig(), "runbook list", start, items, false, nil))
}

// runRunbookShow prints one runbook to the terminal.
func runRunbookShow(cmd *cobra.Command, args []string) {
	start := time.Now()

	book, err := runbook.Get(args[0])
	if err != nil {
		os.Exit(OutputResult(outputConfig(), "runbook show", start, nil, false, err))
	}

	if !quietOutput && !jsonOutput && !compactOutput {
		ux.Title(book.Title)
		fmt.Println(book.Content)
	}
	os.Exit(OutputResult(outputConfig(), "runbook show", start, book, false, nil))
}
