package store

import (
	"context"
	"fmt"

	"github.com/franz/scorelib/internal/catalog"
)

// FindEdition returns the id of a stored edition whose name, composition fields,
// first voice and a composer name all match e. Only e's first composer is
// compared. NULL and '' compare equal.
func (t *Tx) FindEdition(ctx context.Context, e catalog.Edition) (int64, bool, error) {
	c := e.Composition
	voiceRange, voiceName := firstVoiceKey(c)
	composer, _ := c.FirstComposer()

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT edition.id FROM edition
		JOIN score ON edition.score = score.id
		LEFT JOIN voice ON voice.score = score.id AND voice.number = 1
		LEFT JOIN score_author ON score_author.score = score.id
		LEFT JOIN person ON score_author.composer = person.id
		WHERE ifnull(edition.name, '') = ?
		  AND ifnull(score.name, '') = ?
		  AND ifnull(score.genre, '') = ?
		  AND ifnull(score."key", '') = ?
		  AND ifnull(score.incipit, '') = ?
		  AND ifnull(score.year, 0) = ?
		  AND ifnull(voice."range", '') = ?
		  AND ifnull(voice.name, '') = ?
		  AND ifnull(person.name, '') = ?
		ORDER BY edition.id
		LIMIT 1
	`, e.Name, c.Name, c.Genre, c.Key, c.Incipit, yearKey(c.Year), voiceRange, voiceName, composer.Name).Scan(&id)

	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up edition: %w", err)
	}
	return id, true, nil
}

// InsertEdition stores an edition of scoreID and one link per distinct editor id.
// The publication year is not part of the catalog format and stays NULL.
func (t *Tx) InsertEdition(ctx context.Context, scoreID int64, e catalog.Edition, editorIDs []int64) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		"INSERT INTO edition (score, name, year) VALUES (?, ?, NULL)",
		scoreID, nullString(e.Name))
	if err != nil {
		return 0, fmt.Errorf("failed to insert edition: %w", err)
	}

	editionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get edition ID: %w", err)
	}

	for _, editorID := range distinct(editorIDs) {
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO edition_author (edition, editor) VALUES (?, ?)",
			editionID, editorID)
		if err != nil {
			return 0, fmt.Errorf("failed to link editor %d: %w", editorID, err)
		}
	}

	return editionID, nil
}

// GetEditorIDs returns the person ids linked to an edition
func (s *Store) GetEditorIDs(ctx context.Context, editionID int64) ([]int64, error) {
	return s.queryIDs(ctx, "SELECT editor FROM edition_author WHERE edition = ? ORDER BY id", editionID)
}
