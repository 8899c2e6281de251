package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test-library.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func year(v int) *int {
	return &v
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range append([]string{"schema_version"}, Tables...) {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	indexes := []string{
		"person_name_unique_index",
		"score_author_unique_index",
		"voice_unique_index",
		"print_unique_index",
		"idx_score_name",
	}
	for _, index := range indexes {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist", index)
		}
	}
}

func TestStoreReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer second.Close()

	var rows int
	second.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows)
	if rows != currentSchemaVersion {
		t.Errorf("expected %d schema_version rows, got %d", currentSchemaVersion, rows)
	}
}

func upsert(t *testing.T, store *Store, p catalog.Person) (int64, PersonOutcome) {
	t.Helper()
	var (
		id      int64
		outcome PersonOutcome
	)
	err := store.Transaction(context.Background(), func(tx *Tx) error {
		var err error
		id, outcome, err = tx.UpsertPerson(context.Background(), p)
		return err
	})
	if err != nil {
		t.Fatalf("UpsertPerson(%s) failed: %v", p, err)
	}
	return id, outcome
}

func TestUpsertPersonMergesUnknownYears(t *testing.T) {
	orders := map[string][]catalog.Person{
		"born first": {{Name: "Bach", Born: year(1685)}, {Name: "Bach", Died: year(1750)}},
		"died first": {{Name: "Bach", Died: year(1750)}, {Name: "Bach", Born: year(1685)}},
	}

	for name, people := range orders {
		t.Run(name, func(t *testing.T) {
			store := openTestStore(t)
			ctx := context.Background()

			id1, outcome1 := upsert(t, store, people[0])
			id2, outcome2 := upsert(t, store, people[1])

			if outcome1 != PersonCreated || outcome2 != PersonMerged {
				t.Errorf("outcomes = %v, %v; want created, merged", outcome1, outcome2)
			}
			if id1 != id2 {
				t.Errorf("expected the same person id, got %d and %d", id1, id2)
			}

			got, err := store.GetPerson(ctx, "Bach")
			if err != nil || got == nil {
				t.Fatalf("GetPerson failed: %v", err)
			}
			if got.Born == nil || *got.Born != 1685 || got.Died == nil || *got.Died != 1750 {
				t.Errorf("person = %s, want Bach (1685--1750)", got.Person)
			}

			if n, _ := store.CountRows(ctx, "person"); n != 1 {
				t.Errorf("expected 1 person row, got %d", n)
			}
		})
	}
}

func TestUpsertPersonNeverOverwritesKnownYears(t *testing.T) {
	store := openTestStore(t)

	upsert(t, store, catalog.Person{Name: "Handel", Born: year(1685), Died: year(1759)})
	_, outcome := upsert(t, store, catalog.Person{Name: "Handel", Born: year(1600), Died: year(1700)})
	if outcome != PersonUnchanged {
		t.Errorf("outcome = %v, want unchanged", outcome)
	}

	got, _ := store.GetPerson(context.Background(), "Handel")
	if *got.Born != 1685 || *got.Died != 1759 {
		t.Errorf("known years overwritten: %s", got.Person)
	}
}

func testComposition() catalog.Composition {
	return catalog.Composition{
		Name:  "Mass",
		Genre: "mass",
		Year:  year(1724),
		Voices: []catalog.Voice{
			{Number: 1, Range: "S", Name: "Soprano"},
			{Number: 2, Range: "A", Name: "Alto"},
		},
		Composers: []catalog.Person{{Name: "Bach"}},
	}
}

func TestScoreFindAndInsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	c := testComposition()

	var scoreID int64
	err := store.Transaction(ctx, func(tx *Tx) error {
		if _, found, err := tx.FindScore(ctx, c); err != nil || found {
			t.Fatalf("FindScore on empty store = found %v, err %v", found, err)
		}
		bachID, _, err := tx.UpsertPerson(ctx, c.Composers[0])
		if err != nil {
			return err
		}
		scoreID, err = tx.InsertScore(ctx, c, []int64{bachID, bachID})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	voices, err := store.GetVoices(ctx, scoreID)
	if err != nil {
		t.Fatalf("GetVoices failed: %v", err)
	}
	if len(voices) != 2 || voices[0] != c.Voices[0] || voices[1] != c.Voices[1] {
		t.Errorf("voices = %+v, want %+v", voices, c.Voices)
	}

	composers, _ := store.GetComposerIDs(ctx, scoreID)
	if len(composers) != 1 {
		t.Errorf("expected duplicate composer ids to collapse into 1 link, got %d", len(composers))
	}

	tests := []struct {
		name   string
		modify func(c *catalog.Composition)
		found  bool
	}{
		{"identical", func(c *catalog.Composition) {}, true},
		{"second voice differs", func(c *catalog.Composition) { c.Voices[1].Name = "Tenor" }, true},
		{"different composer", func(c *catalog.Composition) { c.Composers = nil }, true},
		{"first voice differs", func(c *catalog.Composition) { c.Voices[0].Name = "Tenor" }, false},
		{"no voices", func(c *catalog.Composition) { c.Voices = nil }, false},
		{"different year", func(c *catalog.Composition) { c.Year = nil }, false},
		{"different key", func(c *catalog.Composition) { c.Key = "D" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := testComposition()
			tt.modify(&candidate)
			store.Transaction(ctx, func(tx *Tx) error {
				id, found, err := tx.FindScore(ctx, candidate)
				if err != nil {
					t.Fatalf("FindScore failed: %v", err)
				}
				if found != tt.found {
					t.Errorf("found = %v, want %v", found, tt.found)
				}
				if found && id != scoreID {
					t.Errorf("found score %d, want %d", id, scoreID)
				}
				return nil
			})
		})
	}
}

func TestFindScoreTreatsNullAsEmpty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	untitled := catalog.Composition{}

	err := store.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.InsertScore(ctx, untitled, nil); err != nil {
			return err
		}
		_, found, err := tx.FindScore(ctx, untitled)
		if !found {
			t.Error("expected an all-NULL score to match an empty composition")
		}
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestEditionFindAndInsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	edition := catalog.Edition{
		Name:        "Urtext",
		Composition: testComposition(),
		Editors:     []catalog.Person{{Name: "Hans Müller"}},
	}

	var editionID int64
	err := store.Transaction(ctx, func(tx *Tx) error {
		bachID, _, err := tx.UpsertPerson(ctx, edition.Composition.Composers[0])
		if err != nil {
			return err
		}
		editorID, _, err := tx.UpsertPerson(ctx, edition.Editors[0])
		if err != nil {
			return err
		}
		scoreID, err := tx.InsertScore(ctx, edition.Composition, []int64{bachID})
		if err != nil {
			return err
		}
		editionID, err = tx.InsertEdition(ctx, scoreID, edition, []int64{editorID})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	editors, _ := store.GetEditorIDs(ctx, editionID)
	if len(editors) != 1 {
		t.Errorf("expected 1 editor link, got %d", len(editors))
	}

	tests := []struct {
		name   string
		modify func(e *catalog.Edition)
		found  bool
	}{
		{"identical", func(e *catalog.Edition) {}, true},
		{"different editors", func(e *catalog.Edition) { e.Editors = nil }, true},
		{"different edition name", func(e *catalog.Edition) { e.Name = "Facsimile" }, false},
		{"different first composer", func(e *catalog.Edition) { e.Composition.Composers = []catalog.Person{{Name: "Handel"}} }, false},
		{"no composers", func(e *catalog.Edition) { e.Composition.Composers = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := edition
			candidate.Composition = testComposition()
			tt.modify(&candidate)
			store.Transaction(ctx, func(tx *Tx) error {
				id, found, err := tx.FindEdition(ctx, candidate)
				if err != nil {
					t.Fatalf("FindEdition failed: %v", err)
				}
				if found != tt.found {
					t.Errorf("found = %v, want %v", found, tt.found)
				}
				if found && id != editionID {
					t.Errorf("found edition %d, want %d", id, editionID)
				}
				return nil
			})
		})
	}
}

func TestInsertPrintRejectsDuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	insert := func(p catalog.Print) error {
		return store.Transaction(ctx, func(tx *Tx) error {
			scoreID, err := tx.InsertScore(ctx, catalog.Composition{Name: "Motet"}, nil)
			if err != nil {
				return err
			}
			editionID, err := tx.InsertEdition(ctx, scoreID, catalog.Edition{}, nil)
			if err != nil {
				return err
			}
			return tx.InsertPrint(ctx, p, editionID)
		})
	}

	if err := insert(catalog.Print{ID: 7, Partiture: catalog.PartitureYes}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := insert(catalog.Print{ID: 7, Partiture: catalog.PartitureNo})
	if !errors.Is(err, ErrPrintExists) {
		t.Fatalf("expected ErrPrintExists, got %v", err)
	}

	got, err := store.GetPrint(ctx, 7)
	if err != nil || got == nil {
		t.Fatalf("GetPrint failed: %v", err)
	}
	if got.Partiture != "Y" {
		t.Errorf("partiture = %q, want Y", got.Partiture)
	}

	// the failed transaction rolled back its score and edition
	if n, _ := store.CountRows(ctx, "score"); n != 1 {
		t.Errorf("expected 1 score after rollback, got %d", n)
	}
}

func TestPartitureUnknownStoredAsN(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx *Tx) error {
		scoreID, err := tx.InsertScore(ctx, catalog.Composition{}, nil)
		if err != nil {
			return err
		}
		editionID, err := tx.InsertEdition(ctx, scoreID, catalog.Edition{}, nil)
		if err != nil {
			return err
		}
		return tx.InsertPrint(ctx, catalog.Print{ID: 1}, editionID)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	got, _ := store.GetPrint(ctx, 1)
	if got.Partiture != "N" {
		t.Errorf("partiture = %q, want N", got.Partiture)
	}
}

func TestImportRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "scorelib.txt")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id to be assigned")
	}

	run.Total, run.Imported, run.Conflicted = 3, 2, 1
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Source != "scorelib.txt" || got.Total != 3 || got.Imported != 2 || got.Conflicted != 1 {
		t.Errorf("run = %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("expected finished_at to be set")
	}
}

func TestCountRowsRejectsUnknownTable(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.CountRows(context.Background(), "sqlite_master; DROP TABLE person"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestLatestRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if run, err := store.LatestRun(ctx); err != nil || run != nil {
		t.Fatalf("LatestRun on empty store = %v, %v", run, err)
	}

	store.BeginRun(ctx, "first.txt")
	second, _ := store.BeginRun(ctx, "second.txt")

	got, err := store.LatestRun(ctx)
	if err != nil || got == nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("LatestRun = %s (%s), want %s", got.ID, got.Source, second.ID)
	}
}

func TestGetEditionScoreNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetEditionScore(context.Background(), 99)
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
