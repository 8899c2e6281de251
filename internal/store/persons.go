package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/scorelib/internal/catalog"
)

// PersonRecord is a stored person row
type PersonRecord struct {
	ID int64
	catalog.Person
}

// PersonOutcome says what UpsertPerson did
type PersonOutcome int

const (
	PersonCreated   PersonOutcome = iota
	PersonMerged                  // existing row, unknown years filled in
	PersonUnchanged               // existing row, nothing new
)

func (o PersonOutcome) String() string {
	switch o {
	case PersonCreated:
		return "created"
	case PersonMerged:
		return "merged"
	default:
		return "unchanged"
	}
}

// UpsertPerson stores p by name. An existing row keeps its known years and
// takes p's years only where its own are NULL.
func (t *Tx) UpsertPerson(ctx context.Context, p catalog.Person) (int64, PersonOutcome, error) {
	existing, err := t.getPerson(ctx, p.Name)
	if err != nil {
		return 0, 0, err
	}

	if existing == nil {
		result, err := t.tx.ExecContext(ctx,
			"INSERT INTO person (name, born, died) VALUES (?, ?, ?)",
			p.Name, nullInt(p.Born), nullInt(p.Died))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert person %q: %w", p.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to get person ID: %w", err)
		}
		return id, PersonCreated, nil
	}

	fillsBorn := existing.Born == nil && p.Born != nil
	fillsDied := existing.Died == nil && p.Died != nil
	if !fillsBorn && !fillsDied {
		return existing.ID, PersonUnchanged, nil
	}

	merged := existing.Person.Merge(p)

	_, err = t.tx.ExecContext(ctx,
		"UPDATE person SET born = ?, died = ? WHERE id = ?",
		nullInt(merged.Born), nullInt(merged.Died), existing.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to update person %q: %w", p.Name, err)
	}
	return existing.ID, PersonMerged, nil
}

func (t *Tx) getPerson(ctx context.Context, name string) (*PersonRecord, error) {
	return scanPerson(t.tx.QueryRowContext(ctx,
		"SELECT id, name, born, died FROM person WHERE name = ?", name))
}

// GetPerson retrieves a person by name, or nil if there is none
func (s *Store) GetPerson(ctx context.Context, name string) (*PersonRecord, error) {
	return scanPerson(s.db.QueryRowContext(ctx,
		"SELECT id, name, born, died FROM person WHERE name = ?", name))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*PersonRecord, error) {
	var (
		rec        PersonRecord
		born, died sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Name, &born, &died)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	rec.Born = intPtr(born)
	rec.Died = intPtr(died)
	return &rec, nil
}
