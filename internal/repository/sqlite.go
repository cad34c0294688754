package repository

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/atinyakov/esgp/internal/models"
)

// SQLiteRepository stores settings sections as rows of a local SQLite database.
type SQLiteRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewSQLiteRepository creates a new SQLiteRepository using the provided *sql.DB.
// db must already carry the settings schema (see db.InitSQLite).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{DB: db}
}

// ReadSections returns all sections ordered by their stored position.
func (r *SQLiteRepository) ReadSections(ctx context.Context) ([]models.Section, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT position, section, key, value FROM settings ORDER BY position, key
	`)
	if err != nil {
		return nil, fmt.Errorf("ReadSections: %w", err)
	}
	defer rows.Close()

	var sections []models.Section
	lastPos := -1
	for rows.Next() {
		var pos int
		var name, key, value string
		if err := rows.Scan(&pos, &name, &key, &value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if pos != lastPos {
			sections = append(sections, models.Section{Name: name, Values: map[string]string{}})
			lastPos = pos
		}
		sections[len(sections)-1].Values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return sections, nil
}

// ReplaceSections deletes every stored row and inserts sections within one
// transaction, so a failed write leaves the previous settings intact.
func (r *SQLiteRepository) ReplaceSections(ctx context.Context, sections []models.Section) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	for pos, sec := range sections {
		for _, k := range sortedKeys(sec.Values) {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO settings (position, section, key, value) VALUES (?, ?, ?, ?)
			`, pos, sec.Name, k, sec.Values[k])
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
