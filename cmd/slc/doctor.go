package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/store"
	"github.com/franz/scorelib/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [catalog.txt]...",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure slc can operate correctly.

This command checks:
- SQLite version
- Configuration values
- Database accessibility, integrity and row counts
- The event log directory is writable
- Catalog files given as arguments can be read and parsed

Use this command to troubleshoot issues before running an import.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== SLC Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkSQLite(),
		checkConfig(),
		checkDatabase(GetConfigString("db", "scorelib.db")),
		checkEventsDirectory(GetConfigString("events-dir", "artifacts")),
	}

	fsys := afero.NewOsFs()
	for _, path := range args {
		results = append(results, checkCatalogFile(fsys, path))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before importing.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! Ready to import.")
	}

	return nil
}

// checkSQLite verifies the embedded SQLite reports a version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkConfig validates settings that only fail once an import is running
func checkConfig() checkResult {
	if _, err := retryConfig(); err != nil {
		return checkResult{
			name:    "Configuration",
			error:   true,
			message: err.Error(),
		}
	}

	source := "defaults"
	if used := viper.ConfigFileUsed(); used != "" {
		source = used
	}
	return checkResult{
		name:    "Configuration",
		message: source,
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first import)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	ctx := context.Background()
	counts, err := db.Counts(ctx)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: err.Error(),
		}
	}

	message := fmt.Sprintf("%s (%s, %s prints, %s compositions, %s persons)",
		dbPath,
		humanize.Bytes(uint64(info.Size())),
		humanize.Comma(int64(counts["print"])),
		humanize.Comma(int64(counts["score"])),
		humanize.Comma(int64(counts["person"])))

	if run, err := db.LatestRun(ctx); err == nil && run != nil {
		message += fmt.Sprintf(", last import %s", humanize.Time(run.StartedAt))
	}

	return checkResult{
		name:    "Database",
		message: message,
	}
}

// checkEventsDirectory verifies the event log directory is writable
func checkEventsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Event log directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Event log directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".slc_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Event log directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkCatalogFile verifies a catalog file parses
func checkCatalogFile(fsys afero.Fs, path string) checkResult {
	name := fmt.Sprintf("Catalog %s", filepath.Base(path))

	src, err := catalog.LoadFile(fsys, path)
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: err.Error(),
		}
	}

	if len(src.Prints) == 0 {
		return checkResult{
			name:    name,
			warning: true,
			message: "no print records found",
		}
	}

	return checkResult{
		name:    name,
		message: fmt.Sprintf("%d prints (%s)", len(src.Prints), humanize.Bytes(uint64(src.Size))),
	}
}
