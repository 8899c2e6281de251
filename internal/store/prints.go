package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/util"
)

// ErrPrintExists is returned when a print number is already stored
var ErrPrintExists = errors.New("print already exists")

// PrintRecord is a stored print row
type PrintRecord struct {
	ID        int64
	Partiture string
	EditionID sql.NullInt64
}

// PrintExists reports whether a print with the given id is stored
func (t *Tx) PrintExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM print WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check print %d: %w", id, err)
	}
	return n > 0, nil
}

// InsertPrint stores p under its own print number. A taken number yields ErrPrintExists.
func (t *Tx) InsertPrint(ctx context.Context, p catalog.Print, editionID int64) error {
	exists, err := t.PrintExists(ctx, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("print %d: %w", p.ID, ErrPrintExists)
	}

	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO print (id, partiture, edition) VALUES (?, ?, ?)",
		p.ID, p.Partiture.Code(), editionID)
	if err != nil {
		return fmt.Errorf("failed to insert print %d: %w", p.ID, err)
	}
	return nil
}

// GetPrint retrieves a print by id, or nil if there is none
func (s *Store) GetPrint(ctx context.Context, id int) (*PrintRecord, error) {
	var rec PrintRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT id, partiture, edition FROM print WHERE id = ?", id,
	).Scan(&rec.ID, &rec.Partiture, &rec.EditionID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get print: %w", err)
	}
	return &rec, nil
}

// GetEditionScore returns the score id an edition belongs to
func (s *Store) GetEditionScore(ctx context.Context, editionID int64) (int64, error) {
	var scoreID int64
	err := s.db.QueryRowContext(ctx, "SELECT score FROM edition WHERE id = ?", editionID).Scan(&scoreID)
	if isNoRows(err) {
		return 0, fmt.Errorf("edition %d: %w", editionID, util.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get edition %d: %w", editionID, err)
	}
	return scoreID, nil
}
