package legacy

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// MigrationStats summarizes one MigrateAll run.
type MigrationStats struct {
	Discovered int `json:"discovered"`
	Migrated   int `json:"migrated"`
	Failed     int `json:"failed"`
}

// GenerateMigrationReport renders the current migration state as an HTML
// document, built from a markdown intermediate.
func (a *Adapter) GenerateMigrationReport() (string, error) {
	md := a.buildMarkdownReport()

	converter := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)

	var buf bytes.Buffer
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render migration report: %w", err)
	}
	return buf.String(), nil
}

// buildMarkdownReport assembles the markdown source for the report.
func (a *Adapter) buildMarkdownReport() string {
	a.mu.Lock()
	ids := make([]string, 0, len(a.records))
	for id := range a.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	migrated, failed := 0, 0
	for _, rec := range a.records {
		if rec.migrated {
			migrated++
		} else if len(rec.errors) > 0 {
			failed++
		}
	}

	var sb strings.Builder
	sb.WriteString("# Legacy Chart Migration Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().UTC().Format(time.RFC1123)))
	sb.WriteString(fmt.Sprintf("**Attempted:** %d | **Migrated:** %d | **Failed:** %d\n\n",
		len(a.records), migrated, failed))

	if len(ids) > 0 {
		sb.WriteString("| Legacy Element | Chart ID | Status | Errors |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, id := range ids {
			rec := a.records[id]
			status := "failed"
			if rec.migrated {
				status = "migrated"
			}
			errText := "-"
			if len(rec.errors) > 0 {
				errText = strings.Join(rec.errors, "; ")
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				id, rec.chartID, status, errText))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No migrations attempted yet.\n")
	}
	a.mu.Unlock()

	return sb.String()
}
