package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/scorelib/internal/store"
)

// SummaryReport represents the outcome of one import run
type SummaryReport struct {
	GeneratedAt time.Time
	Duration    time.Duration

	// Run statistics
	RunID            string
	PrintsTotal      int
	PrintsImported   int
	PrintsConflicted int

	// Entity statistics, filled in by the caller
	PersonsCreated  int
	PersonsMerged   int
	ScoresCreated   int
	ScoresReused    int
	EditionsCreated int
	EditionsReused  int

	// Library totals after the run
	Tables map[string]int

	// Details
	Conflicts []ConflictInfo

	// Metadata
	Sources      []string
	DatabasePath string
	EventLogPath string
}

// ConflictInfo represents a print that was skipped
type ConflictInfo struct {
	PrintID int
	Reason  string
}

// GenerateSummaryReport creates a summary report from a finished run and the library totals
func GenerateSummaryReport(ctx context.Context, db *store.Store, run *store.ImportRun, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		Conflicts:    make([]ConflictInfo, 0),
	}

	if run != nil {
		report.RunID = run.ID
		report.PrintsTotal = run.Total
		report.PrintsImported = run.Imported
		report.PrintsConflicted = run.Conflicted
		if !run.FinishedAt.IsZero() {
			report.Duration = run.FinishedAt.Sub(run.StartedAt)
		}
		if run.Source != "" {
			report.Sources = strings.Split(run.Source, ", ")
		}
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count library rows: %w", err)
	}
	report.Tables = counts

	return report, nil
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	// Header
	md.WriteString("# Score Library Import - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.RunID != "" {
		md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", report.RunID))
	}
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}
	for _, source := range report.Sources {
		md.WriteString(fmt.Sprintf("- Source: `%s`\n", truncatePath(source, 80)))
	}
	if len(report.Sources) > 0 {
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Prints Read | %s |\n", humanize.Comma(int64(report.PrintsTotal))))
	md.WriteString(fmt.Sprintf("| Prints Imported | %s |\n", humanize.Comma(int64(report.PrintsImported))))
	if report.PrintsConflicted > 0 {
		md.WriteString(fmt.Sprintf("| Prints Skipped (number taken) | %s |\n", humanize.Comma(int64(report.PrintsConflicted))))
	}
	if report.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", report.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	// Deduplication
	if report.PersonsCreated+report.PersonsMerged+report.ScoresCreated+report.ScoresReused+report.EditionsCreated+report.EditionsReused > 0 {
		md.WriteString("## Deduplication\n\n")
		md.WriteString("| Entity | Created | Reused |\n")
		md.WriteString("|--------|---------|--------|\n")
		md.WriteString(fmt.Sprintf("| Persons | %d | %d merged |\n", report.PersonsCreated, report.PersonsMerged))
		md.WriteString(fmt.Sprintf("| Compositions | %d | %d |\n", report.ScoresCreated, report.ScoresReused))
		md.WriteString(fmt.Sprintf("| Editions | %d | %d |\n", report.EditionsCreated, report.EditionsReused))
		md.WriteString("\n")
	}

	// Library totals
	if len(report.Tables) > 0 {
		md.WriteString("## Library\n\n")
		md.WriteString("| Table | Rows |\n")
		md.WriteString("|-------|------|\n")
		for _, table := range store.Tables {
			if n, ok := report.Tables[table]; ok {
				md.WriteString(fmt.Sprintf("| %s | %s |\n", table, humanize.Comma(int64(n))))
			}
		}
		md.WriteString("\n")
	}

	// Conflicts
	if len(report.Conflicts) > 0 {
		md.WriteString("## Conflicts\n\n")
		md.WriteString("| Print | Reason |\n")
		md.WriteString("|-------|--------|\n")
		for _, conflict := range report.Conflicts {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", conflict.PrintID, conflict.Reason))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by slc - Score Library Catalog*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
