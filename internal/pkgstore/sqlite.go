package pkgstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists packages in a single sqlite file. Metadata rides as
// a JSON blob so producer keys survive round trips untouched.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS packages (
	id       TEXT PRIMARY KEY,
	status   TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	seq      INTEGER
);
`

// OpenSQLiteStore opens (creating if needed) the package database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open package database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init package schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts a new package and seeds its status history.
func (s *SQLiteStore) Create(p *Package) error {
	cp, err := clonePackage(p)
	if err != nil {
		return err
	}
	seedHistory(cp)
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO packages (id, status, metadata, seq)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM packages))`,
		cp.ID, string(cp.Status), string(meta),
	)
	if err != nil {
		if isConstraintErr(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

// Get returns the package with the given id.
func (s *SQLiteStore) Get(id string) (*Package, error) {
	row := s.db.QueryRow(`SELECT id, status, metadata FROM packages WHERE id = ?`, id)
	return scanPackage(row)
}

// List returns all packages in insertion order.
func (s *SQLiteStore) List() ([]*Package, error) {
	rows, err := s.db.Query(`SELECT id, status, metadata FROM packages ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var out []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies the update inside a transaction so the read-modify-write
// of the metadata blob is atomic.
func (s *SQLiteStore) Update(id string, up Update) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT id, status, metadata FROM packages WHERE id = ?`, id)
	p, err := scanPackage(row)
	if err != nil {
		return err
	}
	if err := applyUpdate(p, up); err != nil {
		return err
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE packages SET status = ?, metadata = ? WHERE id = ?`,
		string(p.Status), string(meta), id,
	); err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*Package, error) {
	var (
		id, status, meta string
	)
	if err := row.Scan(&id, &status, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan package row: %w", err)
	}
	p := &Package{ID: id, Status: Status(status)}
	if err := json.Unmarshal([]byte(meta), &p.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	return p, nil
}

func isConstraintErr(err error) bool {
	// modernc.org/sqlite reports UNIQUE violations as plain errors with
	// the sqlite message text.
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}

var _ Store = (*SQLiteStore)(nil)
