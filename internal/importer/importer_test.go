package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/report"
	"github.com/franz/scorelib/internal/store"
)

const sampleCatalog = `Print Number: 1
Composer: Bach, Johann Sebastian (1685--1750)
Title: Mass in B minor
Genre: mass
Key: b
Composition Year: 1749
Edition: Urtext
Editor: Smend, Friedrich
Voice 1: S, Soprano
Voice 2: A, Alto
Partiture: yes

Print Number: 2
Composer: Bach, Johann Sebastian (1685--1750)
Title: Mass in B minor
Genre: mass
Key: b
Composition Year: 1749
Edition: Urtext
Editor: Smend, Friedrich
Voice 1: S, Soprano
Voice 2: T, Tenor
Partiture: no

Print Number: 3
Composer: Rore, C. de & Monte, P. de
Title: Madrigals
Voice 1: c--g2, Cantus

`

func setupImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(&Config{Store: db, Logger: report.NullLogger()}), db
}

func parse(t *testing.T, input string) []catalog.Print {
	t.Helper()
	prints, err := catalog.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return prints
}

func rowCounts(t *testing.T, db *store.Store) map[string]int {
	t.Helper()
	counts, err := db.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	return counts
}

func TestImportSinglePrint(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()

	prints := parse(t, "Print Number: 1\nComposer: Bach, J.S. (1685--1750)\nTitle: Mass\nVoice 1: S, Soprano\nPartiture: yes\n\n")
	out, err := im.ImportPrint(ctx, prints[0])
	if err != nil {
		t.Fatalf("ImportPrint failed: %v", err)
	}
	if out.Conflict || !out.ScoreCreated || !out.EditionCreated || out.PersonsCreated() != 1 {
		t.Errorf("unexpected outcome: %+v", out)
	}

	person, err := db.GetPerson(ctx, "Bach, J.S.")
	if err != nil || person == nil {
		t.Fatalf("composer not stored: %v", err)
	}
	if *person.Born != 1685 || *person.Died != 1750 {
		t.Errorf("composer = %s", person.Person)
	}

	rec, err := db.GetPrint(ctx, 1)
	if err != nil || rec == nil {
		t.Fatalf("print not stored: %v", err)
	}
	if rec.Partiture != "Y" {
		t.Errorf("partiture = %q, want Y", rec.Partiture)
	}

	scoreID, err := db.GetEditionScore(ctx, rec.EditionID.Int64)
	if err != nil {
		t.Fatalf("GetEditionScore failed: %v", err)
	}
	voices, _ := db.GetVoices(ctx, scoreID)
	if len(voices) != 1 || voices[0] != (catalog.Voice{Number: 1, Range: "S", Name: "Soprano"}) {
		t.Errorf("voices = %+v", voices)
	}
	composers, _ := db.GetComposerIDs(ctx, scoreID)
	if len(composers) != 1 {
		t.Errorf("expected 1 composer link, got %d", len(composers))
	}
}

func TestRunDeduplicatesByFirstVoice(t *testing.T) {
	im, db := setupImporter(t)

	result, err := im.Run(context.Background(), parse(t, sampleCatalog))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Total != 3 || result.Imported != 3 || result.Conflicts != 0 {
		t.Errorf("result = %+v", result)
	}
	// prints 1 and 2 differ only in their second voice
	if result.ScoresCreated != 2 || result.ScoresReused != 1 {
		t.Errorf("scores created/reused = %d/%d, want 2/1", result.ScoresCreated, result.ScoresReused)
	}
	if result.EditionsCreated != 2 || result.EditionsReused != 1 {
		t.Errorf("editions created/reused = %d/%d, want 2/1", result.EditionsCreated, result.EditionsReused)
	}

	counts := rowCounts(t, db)
	want := map[string]int{
		"person":         4, // Bach, Smend, Rore, Monte
		"score":          2,
		"voice":          3,
		"edition":        2,
		"score_author":   3,
		"edition_author": 1,
		"print":          3,
	}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("%s rows = %d, want %d", table, counts[table], n)
		}
	}
}

func TestReimportProducesConflictsOnly(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()
	prints := parse(t, sampleCatalog)

	if _, err := im.Run(ctx, prints); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before := rowCounts(t, db)

	result, err := im.Run(ctx, prints)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if result.Imported != 0 || result.Conflicts != 3 {
		t.Errorf("second run imported %d, conflicted %d; want 0, 3", result.Imported, result.Conflicts)
	}
	if len(result.ConflictIDs) != 3 || result.ConflictIDs[0] != 1 {
		t.Errorf("conflict ids = %v", result.ConflictIDs)
	}

	after := rowCounts(t, db)
	for table, n := range before {
		if after[table] != n {
			t.Errorf("%s rows changed from %d to %d", table, n, after[table])
		}
	}
}

func TestReimportWithNewNumbersReusesRows(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()

	if _, err := im.Run(ctx, parse(t, sampleCatalog)); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before := rowCounts(t, db)

	renumbered := strings.NewReplacer(
		"Print Number: 1\n", "Print Number: 11\n",
		"Print Number: 2\n", "Print Number: 12\n",
		"Print Number: 3\n", "Print Number: 13\n",
	).Replace(sampleCatalog)

	result, err := im.Run(ctx, parse(t, renumbered))
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if result.ScoresCreated != 0 || result.EditionsCreated != 0 || result.PersonsCreated != 0 {
		t.Errorf("expected everything to be reused, got %+v", result)
	}

	after := rowCounts(t, db)
	for _, table := range []string{"person", "score", "voice", "edition", "score_author", "edition_author"} {
		if after[table] != before[table] {
			t.Errorf("%s rows changed from %d to %d", table, before[table], after[table])
		}
	}
	if after["print"] != 6 {
		t.Errorf("print rows = %d, want 6", after["print"])
	}
}

func TestPersonDatesMergeAcrossRecords(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()

	input := `Print Number: 1
Composer: Handel, Georg Friedrich (*1685)
Title: Messiah

Print Number: 2
Composer: Handel, Georg Friedrich (+1759)
Title: Water Music

`
	result, err := im.Run(ctx, parse(t, input))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.PersonsCreated != 1 || result.PersonsMerged != 1 {
		t.Errorf("persons created/merged = %d/%d, want 1/1", result.PersonsCreated, result.PersonsMerged)
	}

	person, _ := db.GetPerson(ctx, "Handel, Georg Friedrich")
	if person == nil || person.Born == nil || person.Died == nil || *person.Born != 1685 || *person.Died != 1759 {
		t.Errorf("expected Handel (1685--1759), got %+v", person)
	}
}

func TestConflictingRecordStillMergesPersonDates(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()

	if _, err := im.Run(ctx, parse(t, "Print Number: 1\nComposer: Bach, J.S.\nTitle: Mass\n\n")); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before := rowCounts(t, db)

	result, err := im.Run(ctx, parse(t, "Print Number: 1\nComposer: Bach, J.S. (1685--1750)\nTitle: Cantata\n\n"))
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if result.Conflicts != 1 || result.Imported != 0 {
		t.Errorf("imported %d, conflicted %d; want 0, 1", result.Imported, result.Conflicts)
	}
	if result.PersonsMerged != 1 {
		t.Errorf("persons merged = %d, want 1", result.PersonsMerged)
	}

	person, _ := db.GetPerson(ctx, "Bach, J.S.")
	if person == nil || person.Born == nil || person.Died == nil || *person.Born != 1685 || *person.Died != 1750 {
		t.Errorf("expected Bach, J.S. (1685--1750), got %+v", person)
	}

	after := rowCounts(t, db)
	for _, table := range []string{"person", "score", "voice", "edition", "print"} {
		if after[table] != before[table] {
			t.Errorf("%s rows changed from %d to %d", table, before[table], after[table])
		}
	}
}

func TestRepeatedComposerLinksOnce(t *testing.T) {
	im, db := setupImporter(t)
	ctx := context.Background()

	prints := parse(t, "Print Number: 5\nComposer: Bach; Bach (1685--1750)\nTitle: Canon\n\n")
	out, err := im.ImportPrint(ctx, prints[0])
	if err != nil {
		t.Fatalf("ImportPrint failed: %v", err)
	}
	if out.PersonsCreated() != 1 || out.PersonsMerged() != 1 {
		t.Errorf("persons created/merged = %d/%d, want 1/1", out.PersonsCreated(), out.PersonsMerged())
	}

	composers, _ := db.GetComposerIDs(ctx, out.ScoreID)
	if len(composers) != 1 {
		t.Errorf("expected a single composer link, got %d", len(composers))
	}
}

func TestRunLogsEvents(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	logger, err := report.NewEventLogger(t.TempDir(), report.LevelInfo)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	im := New(&Config{Store: db, Logger: logger})
	prints := parse(t, sampleCatalog)
	ctx := context.Background()

	if _, err := im.Run(ctx, prints); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := im.Run(ctx, prints[:1]); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if logger.Path() == "" {
		t.Error("expected event log path")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	im, db := setupImporter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := im.Run(ctx, parse(t, sampleCatalog))
	if err == nil {
		t.Fatal("expected context error")
	}
	if result.Imported != 0 {
		t.Errorf("expected nothing imported, got %d", result.Imported)
	}
	if counts := rowCounts(t, db); counts["print"] != 0 {
		t.Errorf("expected no prints stored, got %d", counts["print"])
	}
}
