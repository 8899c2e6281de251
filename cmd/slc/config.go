package main

import (
	"fmt"
	"strings"

	"github.com/franz/scorelib/internal/report"
	"github.com/franz/scorelib/internal/util"
	"github.com/spf13/viper"
)

// envKeyReplacer maps dashed keys like events-dir to SLC_EVENTS_DIR
var envKeyReplacer = strings.NewReplacer("-", "_")

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (SLC_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// eventLevel picks the event log threshold from the verbosity flags
func eventLevel() report.EventLevel {
	switch {
	case GetConfigBool("quiet"):
		return report.LevelWarning
	case GetConfigBool("verbose"):
		return report.LevelDebug
	default:
		return report.LevelInfo
	}
}

// openEventLogger creates the JSONL event log, falling back to a no-op logger
func openEventLogger() *report.EventLogger {
	logger, err := report.NewEventLogger(GetConfigString("events-dir", "artifacts"), eventLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

// retryConfig reads the busy-retry settings
func retryConfig() (*util.RetryConfig, error) {
	cfg := util.DefaultRetryConfig()
	cfg.MaxAttempts = GetConfigInt("retry.attempts", cfg.MaxAttempts)
	if d := viper.GetDuration("retry.initial-wait"); d > 0 {
		cfg.InitialWait = d
	}
	if d := viper.GetDuration("retry.max-wait"); d > 0 {
		cfg.MaxWait = d
	}
	if cfg.MaxAttempts < 1 || cfg.InitialWait > cfg.MaxWait {
		return nil, fmt.Errorf("%w: retry attempts must be positive and initial wait at most max wait", util.ErrInvalidConfig)
	}
	return cfg, nil
}
