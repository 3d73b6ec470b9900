// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runbook ships operational runbooks inside the binary. An
// operator paged at 3am should not need a wiki that may itself be down.
package runbook

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed runbooks/*.md
var runbookFS embed.FS

// Runbook is one embedded operational document.
type Runbook struct {
	// Slug is the filename without extension, e.g. "stack-down".
	Slug string

	// Title is the first heading in the document.
	Title string

	// Summary is the first paragraph after the title.
	Summary string

	// Content is the full markdown body.
	Content string
}

// List returns all embedded runbooks sorted by slug.
func List() ([]Runbook, error) {
	entries, err := fs.Glob(runbookFS, "runbooks/*.md")
	if err != nil {
		return nil, fmt.Errorf("listing runbooks: %w", err)
	}
	sort.Strings(entries)

	books := make([]Runbook, 0, len(entries))
	for _, entry := range entries {
		book, err := load(entry)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, nil
}

// Get returns one runbook by slug.
func Get(slug string) (*Runbook, error) {
	book, err := load(path.Join("runbooks", slug+".md"))
	if err != nil {
		slugs, listErr := Slugs()
		if listErr != nil {
			return nil, fmt.Errorf("no runbook %q", slug)
		}
		return nil, fmt.Errorf("no runbook %q (available: %s)", slug, strings.Join(slugs, ", "))
	}
	return book, nil
}

// Slugs returns the available runbook slugs sorted alphabetically.
func Slugs() ([]string, error) {
	books, err := List()
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(books))
	for i, book := range books {
		slugs[i] = book.Slug
	}
	return slugs, nil
}

func load(entry string) (*Runbook, error) {
	data, err := runbookFS.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	content := string(data)

	book := &Runbook{
		Slug:    strings.TrimSuffix(path.Base(entry), ".md"),
		Content: content,
	}
	book.Title, book.Summary = parseHead(content)
	if book.Title == "" {
		return nil, fmt.Errorf("runbook %s has no title heading", entry)
	}
	return book, nil
}

// parseHead extracts the first heading and the first paragraph after it.
func parseHead(content string) (title, summary string) {
	lines := strings.Split(content, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			i++
			break
		}
	}
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			if summary != "" {
				break
			}
			continue
		}
		if summary != "" {
			summary += " "
		}
		summary += line
	}
	return title, summary
}
