package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Row is one persisted register: its entry payload is stored as JSON.
type Row struct {
	Section  string
	Register string
	Payload  string
}

// Snapshot is the full table content: every section name (empty sections
// included) and every register row.
type Snapshot struct {
	Sections []string
	Rows     []Row
}

// LoadAll reads every section and register, ordered by name.
func LoadAll(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	snap := &Snapshot{}

	sectionRows, err := db.QueryContext(ctx, `SELECT name FROM sections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer sectionRows.Close()
	for sectionRows.Next() {
		var name string
		if err := sectionRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		snap.Sections = append(snap.Sections, name)
	}
	if err := sectionRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT section, register, payload
		FROM registers
		ORDER BY section, register
	`)
	if err != nil {
		return nil, fmt.Errorf("query registers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Section, &r.Register, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan register: %w", err)
		}
		snap.Rows = append(snap.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registers: %w", err)
	}

	return snap, nil
}

// ReplaceAll swaps the whole table content for snap in one transaction.
// On any failure the previous content is kept.
func ReplaceAll(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM registers`); err != nil {
		return fmt.Errorf("clear registers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections`); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}

	sectionStmt, err := tx.PrepareContext(ctx, `INSERT INTO sections (name) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare sections: %w", err)
	}
	defer sectionStmt.Close()
	for _, name := range snap.Sections {
		if _, err := sectionStmt.ExecContext(ctx, name); err != nil {
			return fmt.Errorf("insert section %q: %w", name, err)
		}
	}

	registerStmt, err := tx.PrepareContext(ctx, `INSERT INTO registers (section, register, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare registers: %w", err)
	}
	defer registerStmt.Close()
	for _, r := range snap.Rows {
		if _, err := registerStmt.ExecContext(ctx, r.Section, r.Register, r.Payload); err != nil {
			return fmt.Errorf("insert register %q/%q: %w", r.Section, r.Register, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
