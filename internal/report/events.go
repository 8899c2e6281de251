package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventParse    EventType = "parse"
	EventPerson   EventType = "person"
	EventScore    EventType = "score"
	EventEdition  EventType = "edition"
	EventPrint    EventType = "print"
	EventConflict EventType = "conflict"
	EventRun      EventType = "run"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Actions recorded for persisted entities
const (
	ActionCreated   = "created"
	ActionMerged    = "merged"
	ActionReused    = "reused"
	ActionUnchanged = "unchanged"
	ActionSkipped   = "skipped"
)

// Event represents a single event of an import
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	RunID     string            `json:"run_id,omitempty"`
	Source    string            `json:"source,omitempty"`
	PrintID   int               `json:"print_id,omitempty"`
	Entity    string            `json:"entity,omitempty"`
	EntityID  int64             `json:"entity_id,omitempty"`
	Action    string            `json:"action,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// SetRunID tags every following event with an import run id
func (l *EventLogger) SetRunID(runID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogParse logs the result of parsing one input file
func (l *EventLogger) LogParse(source string, prints int, sizeBytes int64, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:  level,
		Event:  EventParse,
		Source: source,
		Error:  errMsg,
		Extra: map[string]string{
			"prints":     strconv.Itoa(prints),
			"size_bytes": strconv.FormatInt(sizeBytes, 10),
		},
	})
}

// LogPerson logs a person upsert. Merges are info, everything else debug.
func (l *EventLogger) LogPerson(printID int, personID int64, name, action string) error {
	level := LevelDebug
	if action == ActionMerged {
		level = LevelInfo
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventPerson,
		PrintID:  printID,
		Entity:   name,
		EntityID: personID,
		Action:   action,
	})
}

// LogScore logs whether a composition was stored or matched an existing one
func (l *EventLogger) LogScore(printID int, scoreID int64, title, action string) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventScore,
		PrintID:  printID,
		Entity:   title,
		EntityID: scoreID,
		Action:   action,
	})
}

// LogEdition logs whether an edition was stored or matched an existing one
func (l *EventLogger) LogEdition(printID int, editionID int64, name, action string) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventEdition,
		PrintID:  printID,
		Entity:   name,
		EntityID: editionID,
		Action:   action,
	})
}

// LogPrint logs a committed print record
func (l *EventLogger) LogPrint(printID int, editionID int64, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventPrint,
		PrintID:  printID,
		EntityID: editionID,
		Action:   ActionCreated,
		Duration: duration.Milliseconds(),
	})
}

// LogConflict logs a print that was skipped because its number is taken
func (l *EventLogger) LogConflict(printID int, reason string) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventConflict,
		PrintID: printID,
		Action:  ActionSkipped,
		Reason:  reason,
	})
}

// LogRun logs the final counters of an import run
func (l *EventLogger) LogRun(source string, total, imported, conflicted int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventRun,
		Source:   source,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"total":      strconv.Itoa(total),
			"imported":   strconv.Itoa(imported),
			"conflicted": strconv.Itoa(conflicted),
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, printID int, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		PrintID: printID,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
