// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// FormatTable writes studies as a human-readable table to w.
func FormatTable(studies []types.StudyRecord, w io.Writer) {
	if len(studies) == 0 {
		fmt.Fprintln(w, "No studies found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-12s  %-60s  %-20s  %-4s  %s\n",
		"Rank", "ID", "Title", "Authors", "Year", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, s := range studies {
		year := ""
		if s.Year > 0 {
			year = fmt.Sprintf("%d", s.Year)
		}
		fmt.Fprintf(w, "%-4d  %-12s  %-60s  %-20s  %-4s  %s\n",
			i+1, truncate(s.ID, 12), truncate(s.Title, 60), formatAuthors(s.Authors), year, s.Source)
	}

	fmt.Fprintf(w, "\n%d studies\n", len(studies))
}

// FormatJSON writes studies as indented JSON to w.
func FormatJSON(studies []types.StudyRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(studies)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
