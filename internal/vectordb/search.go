package vectordb

import (
	"fmt"
	"strings"
)

// FormatMatches renders query matches as human-readable text.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(matches)))

	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", i+1, m.Score))
		sb.WriteString(fmt.Sprintf("ID: %s\n", m.ID))

		if m.Metadata.SourcePath != "" {
			location := m.Metadata.SourcePath
			if m.Metadata.TotalChunks > 1 {
				location += fmt.Sprintf(" (chunk %d/%d)", m.Metadata.ChunkIndex+1, m.Metadata.TotalChunks)
			}
			sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		}
		if m.Metadata.Summary != "" {
			sb.WriteString(fmt.Sprintf("Summary: %s\n", m.Metadata.Summary))
		}
		if len(m.Metadata.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(m.Metadata.Keywords, ", ")))
		}

		if m.Metadata.Text != "" {
			sb.WriteString("\n")
			sb.WriteString(m.Metadata.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
