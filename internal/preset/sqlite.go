package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var sqliteMigrations = []migration{
	{version: 1, statements: []string{
		`CREATE TABLE IF NOT EXISTS presets (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			document   TEXT NOT NULL
		)`,
	}},
	{version: 2, statements: []string{
		`CREATE INDEX IF NOT EXISTS idx_presets_owner ON presets (owner_id, created_at DESC)`,
	}},
}

// SQLiteStore keeps presets in an embedded SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and brings
// its schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range sqliteMigrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, p Preset) error {
	doc, err := encodeDocument(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO presets (id, owner_id, name, created_at, document)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            owner_id = excluded.owner_id,
            name = excluded.name,
            created_at = excluded.created_at,
            document = excluded.document
    `, p.ID, p.OwnerID, p.Name, p.CreatedAt, doc)
	if err != nil {
		return fmt.Errorf("insert preset %q: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, owner_id, name, created_at, document
        FROM presets
        WHERE owner_id = ?
        ORDER BY created_at DESC, id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	out := []Preset{}
	for rows.Next() {
		var (
			id, owner, name string
			createdAt       int64
			doc             []byte
		)
		if err := rows.Scan(&id, &owner, &name, &createdAt, &doc); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		p, err := scanned(id, owner, name, createdAt, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Preset, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, owner_id, name, created_at, document
        FROM presets
        WHERE id = ?
    `, id)

	var (
		pid, owner, name string
		createdAt        int64
		doc              []byte
	)
	if err := row.Scan(&pid, &owner, &name, &createdAt, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preset{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
		}
		return Preset{}, fmt.Errorf("get preset %q: %w", id, err)
	}
	return scanned(pid, owner, name, createdAt, doc)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete preset %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
