package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/hpungsan/harp/internal/db"
	"github.com/hpungsan/harp/internal/errors"
)

// SQLite keeps the store in a SQLite database, one row per register. Saves
// replace the whole table content in a single transaction.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes baseDir/harp.db and returns a backend on it.
// The caller owns closing it.
func OpenSQLite(baseDir string) (*SQLite, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, errors.NewIO("open sqlite store", err)
	}
	return &SQLite{db: database, path: filepath.Join(baseDir, db.FileName)}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Location implements Backend.
func (s *SQLite) Location() string {
	return s.path
}

// Load implements Backend.
func (s *SQLite) Load() (Store, error) {
	snap, err := db.LoadAll(context.Background(), s.db)
	if err != nil {
		return nil, errors.NewIO("read "+s.path, err)
	}

	st := Store{}
	for _, name := range snap.Sections {
		st[name] = Section{}
	}
	for _, row := range snap.Rows {
		e := &Entry{}
		if err := json.Unmarshal([]byte(row.Payload), e); err != nil {
			return nil, errors.NewFormat(fmt.Sprintf("%s (%s/%s)", s.path, row.Section, row.Register), err)
		}
		sec, ok := st[row.Section]
		if !ok {
			sec = Section{}
			st[row.Section] = sec
		}
		sec[row.Register] = e
	}
	return st, nil
}

// Save implements Backend.
func (s *SQLite) Save(st Store) error {
	snap := &db.Snapshot{}
	for _, name := range st.Names() {
		snap.Sections = append(snap.Sections, name)
		sec := st[name]
		for _, reg := range sec.Keys() {
			payload, err := json.Marshal(sec[reg])
			if err != nil {
				return errors.NewInternal(fmt.Errorf("encode %s/%s: %w", name, reg, err))
			}
			snap.Rows = append(snap.Rows, db.Row{Section: name, Register: reg, Payload: string(payload)})
		}
	}
	if err := db.ReplaceAll(context.Background(), s.db, snap); err != nil {
		return errors.NewIO("write "+s.path, err)
	}
	return nil
}
