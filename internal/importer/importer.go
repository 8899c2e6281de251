package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/report"
	"github.com/franz/scorelib/internal/store"
	"github.com/franz/scorelib/internal/util"
	"github.com/schollz/progressbar/v3"
)

// Importer persists parsed print records into the library database
type Importer struct {
	store        *store.Store
	logger       *report.EventLogger
	retry        *util.RetryConfig
	showProgress bool
}

// Config holds importer configuration
type Config struct {
	Store        *store.Store
	Logger       *report.EventLogger
	Retry        *util.RetryConfig
	ShowProgress bool
}

// New creates a new Importer
func New(cfg *Config) *Importer {
	if cfg.Retry == nil {
		cfg.Retry = util.DefaultRetryConfig()
	}
	return &Importer{
		store:        cfg.Store,
		logger:       cfg.Logger,
		retry:        cfg.Retry,
		showProgress: cfg.ShowProgress,
	}
}

// personResult records what happened to one person of a record
type personResult struct {
	id      int64
	name    string
	outcome store.PersonOutcome
}

// Outcome describes how a single print record was persisted
type Outcome struct {
	PrintID        int
	Conflict       bool
	ScoreID        int64
	ScoreCreated   bool
	EditionID      int64
	EditionCreated bool
	persons        []personResult
}

// PersonsCreated counts persons inserted for this record
func (o *Outcome) PersonsCreated() int {
	return o.countPersons(store.PersonCreated)
}

// PersonsMerged counts existing persons whose unknown years were filled in
func (o *Outcome) PersonsMerged() int {
	return o.countPersons(store.PersonMerged)
}

func (o *Outcome) countPersons(outcome store.PersonOutcome) int {
	n := 0
	for _, p := range o.persons {
		if p.outcome == outcome {
			n++
		}
	}
	return n
}

// ImportPrint stores one print record with its composition, edition and people
// in a single transaction. A print whose number is already stored is reported
// as a conflict: its people are still merged, nothing else is written.
func (im *Importer) ImportPrint(ctx context.Context, p catalog.Print) (*Outcome, error) {
	start := time.Now()

	var out *Outcome
	err := util.Retry(ctx, im.retry, func() error {
		var err error
		out, err = im.persist(ctx, p)
		return err
	}, fmt.Sprintf("import print %d", p.ID))

	if errors.Is(err, store.ErrPrintExists) {
		out = &Outcome{PrintID: p.ID, Conflict: true}
		err = nil
	}
	if err != nil {
		im.logger.LogError(report.EventError, p.ID, err)
		return nil, fmt.Errorf("print %d: %w", p.ID, err)
	}

	if out.Conflict {
		util.WarnLog("Print %d already stored, skipping record", p.ID)
		im.logPeople(p, out)
		im.logger.LogConflict(p.ID, "print number already stored")
		return out, nil
	}

	im.logOutcome(p, out, time.Since(start))
	return out, nil
}

// persist runs one attempt of the record transaction
func (im *Importer) persist(ctx context.Context, p catalog.Print) (*Outcome, error) {
	out := &Outcome{PrintID: p.ID}
	c := p.Composition()

	err := im.store.Transaction(ctx, func(tx *store.Tx) error {
		composerIDs, err := im.upsertPeople(ctx, tx, c.Composers, out)
		if err != nil {
			return err
		}
		editorIDs, err := im.upsertPeople(ctx, tx, p.Edition.Editors, out)
		if err != nil {
			return err
		}

		// People are kept even when the print number is taken
		exists, err := tx.PrintExists(ctx, p.ID)
		if err != nil {
			return err
		}
		if exists {
			out.Conflict = true
			return nil
		}

		scoreID, found, err := tx.FindScore(ctx, c)
		if err != nil {
			return err
		}
		if !found {
			scoreID, err = tx.InsertScore(ctx, c, composerIDs)
			if err != nil {
				return err
			}
			out.ScoreCreated = true
		}
		out.ScoreID = scoreID

		editionID, found, err := tx.FindEdition(ctx, p.Edition)
		if err != nil {
			return err
		}
		if !found {
			editionID, err = tx.InsertEdition(ctx, scoreID, p.Edition, editorIDs)
			if err != nil {
				return err
			}
			out.EditionCreated = true
		}
		out.EditionID = editionID

		return tx.InsertPrint(ctx, p, editionID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (im *Importer) upsertPeople(ctx context.Context, tx *store.Tx, people []catalog.Person, out *Outcome) ([]int64, error) {
	ids := make([]int64, 0, len(people))
	for _, person := range people {
		id, outcome, err := tx.UpsertPerson(ctx, person)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		out.persons = append(out.persons, personResult{id: id, name: person.Name, outcome: outcome})
	}
	return ids, nil
}

func (im *Importer) logPeople(p catalog.Print, out *Outcome) {
	for _, person := range out.persons {
		action := report.ActionUnchanged
		switch person.outcome {
		case store.PersonCreated:
			action = report.ActionCreated
		case store.PersonMerged:
			action = report.ActionMerged
			util.DebugLog("Print %d: filled in dates for %s", p.ID, person.name)
		}
		im.logger.LogPerson(p.ID, person.id, person.name, action)
	}
}

func (im *Importer) logOutcome(p catalog.Print, out *Outcome, duration time.Duration) {
	im.logPeople(p, out)

	action := report.ActionReused
	if out.ScoreCreated {
		action = report.ActionCreated
	}
	im.logger.LogScore(p.ID, out.ScoreID, p.Composition().Name, action)

	action = report.ActionReused
	if out.EditionCreated {
		action = report.ActionCreated
	}
	im.logger.LogEdition(p.ID, out.EditionID, p.Edition.Name, action)

	im.logger.LogPrint(p.ID, out.EditionID, duration)
}

// Result summarizes an import run
type Result struct {
	Total           int
	Imported        int
	Conflicts       int
	PersonsCreated  int
	PersonsMerged   int
	ScoresCreated   int
	ScoresReused    int
	EditionsCreated int
	EditionsReused  int
	ConflictIDs     []int
}

func (r *Result) add(out *Outcome) {
	r.PersonsCreated += out.PersonsCreated()
	r.PersonsMerged += out.PersonsMerged()
	if out.Conflict {
		r.Conflicts++
		r.ConflictIDs = append(r.ConflictIDs, out.PrintID)
		return
	}

	r.Imported++
	if out.ScoreCreated {
		r.ScoresCreated++
	} else {
		r.ScoresReused++
	}
	if out.EditionCreated {
		r.EditionsCreated++
	} else {
		r.EditionsReused++
	}
}

// Run imports prints in order. Conflicting print numbers are skipped;
// a storage failure stops the run and returns the counts so far.
func (im *Importer) Run(ctx context.Context, prints []catalog.Print) (*Result, error) {
	result := &Result{Total: len(prints)}

	var bar *progressbar.ProgressBar
	if im.showProgress && util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(prints),
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionSetWidth(min(40, util.TerminalWidth(os.Stdout.Fd(), 80)/3)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("prints"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
	}

	for _, p := range prints {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		out, err := im.ImportPrint(ctx, p)
		if err != nil {
			return result, err
		}
		result.add(out)

		if bar != nil {
			bar.Describe(fmt.Sprintf("Importing | %d new | %d skipped", result.Imported, result.Conflicts))
			bar.Add(1)
		}
	}

	return result, nil
}
