package preset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresMigrations = []migration{
	{version: 1, statements: []string{
		`CREATE TABLE IF NOT EXISTS presets (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			document   JSONB NOT NULL
		)`,
	}},
	{version: 2, statements: []string{
		`CREATE INDEX IF NOT EXISTS idx_presets_owner ON presets (owner_id, created_at DESC)`,
	}},
}

// PGStore keeps presets in Postgres. It is used instead of SQLite when a
// database URL is configured, e.g. when several server replicas share
// one preset table.
type PGStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	var current int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range postgresMigrations {
		if m.version <= current {
			continue
		}
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *PGStore) Put(ctx context.Context, p Preset) error {
	doc, err := encodeDocument(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO presets (id, owner_id, name, created_at, document)
        VALUES ($1, $2, $3, $4, $5::jsonb)
        ON CONFLICT (id) DO UPDATE SET
            owner_id = EXCLUDED.owner_id,
            name = EXCLUDED.name,
            created_at = EXCLUDED.created_at,
            document = EXCLUDED.document
    `, p.ID, p.OwnerID, p.Name, p.CreatedAt, doc)
	if err != nil {
		return fmt.Errorf("insert preset %q: %w", p.ID, err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, ownerID string) ([]Preset, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, owner_id, name, created_at, document::text
        FROM presets
        WHERE owner_id = $1
        ORDER BY created_at DESC, id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	out := []Preset{}
	for rows.Next() {
		var (
			id, owner, name, doc string
			createdAt            int64
		)
		if err := rows.Scan(&id, &owner, &name, &createdAt, &doc); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		p, err := scanned(id, owner, name, createdAt, []byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (Preset, error) {
	var (
		pid, owner, name, doc string
		createdAt             int64
	)
	err := s.pool.QueryRow(ctx, `
        SELECT id, owner_id, name, created_at, document::text
        FROM presets
        WHERE id = $1
    `, id).Scan(&pid, &owner, &name, &createdAt, &doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preset{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
		}
		return Preset{}, fmt.Errorf("get preset %q: %w", id, err)
	}
	return scanned(pid, owner, name, createdAt, []byte(doc))
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM presets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete preset %q: %w", id, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
