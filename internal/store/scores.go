package store

import (
	"context"
	"fmt"

	"github.com/franz/scorelib/internal/catalog"
)

// firstVoiceKey returns the first voice's range and name, or empty strings.
// Only voice number 1 takes part in duplicate detection.
func firstVoiceKey(c catalog.Composition) (string, string) {
	v, _ := c.FirstVoice()
	return v.Range, v.Name
}

func yearKey(y *int) int {
	if y == nil {
		return 0
	}
	return *y
}

// FindScore returns the id of a stored composition with the same title, genre,
// key, incipit, year and first voice. NULL and '' compare equal.
func (t *Tx) FindScore(ctx context.Context, c catalog.Composition) (int64, bool, error) {
	voiceRange, voiceName := firstVoiceKey(c)

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT score.id FROM score
		LEFT JOIN voice ON voice.score = score.id AND voice.number = 1
		WHERE ifnull(score.name, '') = ?
		  AND ifnull(score.genre, '') = ?
		  AND ifnull(score."key", '') = ?
		  AND ifnull(score.incipit, '') = ?
		  AND ifnull(score.year, 0) = ?
		  AND ifnull(voice."range", '') = ?
		  AND ifnull(voice.name, '') = ?
		ORDER BY score.id
		LIMIT 1
	`, c.Name, c.Genre, c.Key, c.Incipit, yearKey(c.Year), voiceRange, voiceName).Scan(&id)

	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up score: %w", err)
	}
	return id, true, nil
}

// InsertScore stores a composition with its voices (numbered from 1) and one
// link per distinct composer id.
func (t *Tx) InsertScore(ctx context.Context, c catalog.Composition, composerIDs []int64) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO score (name, genre, "key", incipit, year)
		VALUES (?, ?, ?, ?, ?)
	`, nullString(c.Name), nullString(c.Genre), nullString(c.Key), nullString(c.Incipit), nullInt(c.Year))
	if err != nil {
		return 0, fmt.Errorf("failed to insert score: %w", err)
	}

	scoreID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get score ID: %w", err)
	}

	for i, v := range c.Voices {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO voice (number, score, "range", name)
			VALUES (?, ?, ?, ?)
		`, i+1, scoreID, nullString(v.Range), nullString(v.Name))
		if err != nil {
			return 0, fmt.Errorf("failed to insert voice %d: %w", i+1, err)
		}
	}

	for _, composerID := range distinct(composerIDs) {
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO score_author (score, composer) VALUES (?, ?)",
			scoreID, composerID)
		if err != nil {
			return 0, fmt.Errorf("failed to link composer %d: %w", composerID, err)
		}
	}

	return scoreID, nil
}

// GetVoices returns a score's voices ordered by number
func (s *Store) GetVoices(ctx context.Context, scoreID int64) ([]catalog.Voice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, COALESCE("range", ''), COALESCE(name, '')
		FROM voice WHERE score = ?
		ORDER BY number
	`, scoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voices: %w", err)
	}
	defer rows.Close()

	var voices []catalog.Voice
	for rows.Next() {
		var v catalog.Voice
		if err := rows.Scan(&v.Number, &v.Range, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan voice: %w", err)
		}
		voices = append(voices, v)
	}
	return voices, rows.Err()
}

// GetComposerIDs returns the person ids linked to a score
func (s *Store) GetComposerIDs(ctx context.Context, scoreID int64) ([]int64, error) {
	return s.queryIDs(ctx, "SELECT composer FROM score_author WHERE score = ? ORDER BY id", scoreID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// distinct drops repeated ids, keeping first-seen order
func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
