package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/importer"
	"github.com/franz/scorelib/internal/report"
	"github.com/franz/scorelib/internal/store"
	"github.com/franz/scorelib/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var importCmd = &cobra.Command{
	Use:   "import <catalog.txt>...",
	Short: "Parse catalog files and store them in the library database",
	Long: `Parse one or more plain-text catalog files and persist every print record.

Each record is stored in its own transaction:
1. Composers and editors are matched by name; unknown birth and death years
   are filled in from the new record
2. Compositions are reused when title, genre, key, incipit, year and first
   voice match a stored one
3. Editions are reused when their name, composition and first composer match
4. The print is stored under its own number

A print number that is already stored is reported as a conflict and the
record is skipped. A malformed catalog stops the import before anything is
written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("fresh", false, "delete the database before importing")
	importCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	importCmd.Flags().String("report", "", "write a Markdown summary of the run to this path")

	viper.BindPFlag("import.no-progress", importCmd.Flags().Lookup("no-progress"))
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbPath := GetConfigString("db", "scorelib.db")
	fresh, _ := cmd.Flags().GetBool("fresh")
	reportPath, _ := cmd.Flags().GetString("report")

	retry, err := retryConfig()
	if err != nil {
		return err
	}

	logger := openEventLogger()
	defer logger.Close()

	// Phase 1: Parsing
	util.InfoLog("=== Phase 1: Parsing ===")
	parseStart := time.Now()

	sources, err := catalog.LoadFiles(afero.NewOsFs(), args)
	for _, src := range sources {
		if src == nil {
			continue
		}
		logger.LogParse(src.Path, len(src.Prints), src.Size, nil)
		util.InfoLog("  %s: %d prints (%s)", src.Path, len(src.Prints), humanize.Bytes(uint64(src.Size)))
	}
	if err != nil {
		logger.LogParse(strings.Join(args, ", "), 0, 0, err)
		return fmt.Errorf("parse failed: %w", err)
	}

	var prints []catalog.Print
	for _, src := range sources {
		prints = append(prints, src.Prints...)
	}
	util.SuccessLog("Parsed %s prints from %d file(s) in %v",
		humanize.Comma(int64(len(prints))), len(sources), time.Since(parseStart).Round(time.Millisecond))

	// Phase 2: Persisting
	util.InfoLog("")
	util.InfoLog("=== Phase 2: Persisting ===")

	if fresh {
		if err := removeDatabase(dbPath); err != nil {
			return err
		}
		util.InfoLog("Removed existing database: %s", dbPath)
	}

	util.InfoLog("Opening database: %s", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	run, err := db.BeginRun(ctx, strings.Join(args, ", "))
	if err != nil {
		return err
	}
	logger.SetRunID(run.ID)
	util.DebugLog("Import run: %s", run.ID)

	imp := importer.New(&importer.Config{
		Store:        db,
		Logger:       logger,
		Retry:        retry,
		ShowProgress: !GetConfigBool("import.no-progress"),
	})

	result, runErr := imp.Run(ctx, prints)

	run.Total = result.Total
	run.Imported = result.Imported
	run.Conflicted = result.Conflicts
	if err := db.FinishRun(context.Background(), run); err != nil {
		util.WarnLog("Failed to record run counters: %v", err)
	}
	logger.LogRun(run.Source, run.Total, run.Imported, run.Conflicted, run.FinishedAt.Sub(run.StartedAt))

	// Summary
	util.InfoLog("")
	if runErr != nil {
		util.ErrorLog("=== Import stopped ===")
	} else {
		util.SuccessLog("=== Import Summary ===")
	}
	util.InfoLog("Prints imported: %s of %s", humanize.Comma(int64(result.Imported)), humanize.Comma(int64(result.Total)))
	if result.Conflicts > 0 {
		util.WarnLog("Prints skipped (number already stored): %d", result.Conflicts)
		if util.IsVerbose() {
			util.DebugLog("Skipped print numbers: %v", result.ConflictIDs)
		}
	}
	util.InfoLog("Persons: %d new, %d with added dates", result.PersonsCreated, result.PersonsMerged)
	util.InfoLog("Compositions: %d new, %d reused", result.ScoresCreated, result.ScoresReused)
	util.InfoLog("Editions: %d new, %d reused", result.EditionsCreated, result.EditionsReused)
	util.InfoLog("Total time: %v", time.Since(parseStart).Round(time.Millisecond))

	if reportPath != "" {
		if err := writeRunReport(db, run, result, logger.Path(), dbPath, reportPath); err != nil {
			util.WarnLog("Failed to write report: %v", err)
		} else {
			util.InfoLog("Report saved to: %s", reportPath)
		}
	}

	if runErr != nil {
		return fmt.Errorf("import failed after %d prints: %w", result.Imported+result.Conflicts, runErr)
	}
	return nil
}

// removeDatabase deletes the database file and its WAL side files
func removeDatabase(dbPath string) error {
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func writeRunReport(db *store.Store, run *store.ImportRun, result *importer.Result, eventLogPath, dbPath, outputPath string) error {
	summary, err := report.GenerateSummaryReport(context.Background(), db, run, eventLogPath)
	if err != nil {
		return err
	}

	summary.DatabasePath = dbPath
	summary.PersonsCreated = result.PersonsCreated
	summary.PersonsMerged = result.PersonsMerged
	summary.ScoresCreated = result.ScoresCreated
	summary.ScoresReused = result.ScoresReused
	summary.EditionsCreated = result.EditionsCreated
	summary.EditionsReused = result.EditionsReused
	for _, id := range result.ConflictIDs {
		summary.Conflicts = append(summary.Conflicts, report.ConflictInfo{
			PrintID: id,
			Reason:  "print number already stored",
		})
	}

	return report.WriteMarkdownReport(summary, outputPath)
}
