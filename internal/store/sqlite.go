package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/navgrid/internal/occmap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps a catalog of occupancy records in SQLite. The latest
// record per scene lives in occupancy_maps; every save is also appended to
// occupancy_map_runs.
type SQLiteStore struct {
	db *sql.DB
}

// Summary describes one catalogued scene without decoding its blob.
type Summary struct {
	Scene            string
	RunID            string
	CreatedUnixNanos int64
	Rows, Cols       int
	NavigableCount   int
	Height           float64
	CellSize         float64
}

// OpenSQLite opens the database at path and migrates it to the latest schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// migrateUp applies all pending embedded migrations.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save upserts the scene's latest record and appends the run to the history.
func (s *SQLiteStore) Save(ctx context.Context, r *occmap.Record) (err error) {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid record: %w", err)
	}
	blob, err := occmap.Encode(r)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				opsf("rollback failed: %v", rbErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO occupancy_maps (scene, run_id, created_unix_nanos, row_count, col_count, navigable_count, sample_height, cell_size, record_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scene) DO UPDATE SET
			run_id = excluded.run_id,
			created_unix_nanos = excluded.created_unix_nanos,
			row_count = excluded.row_count,
			col_count = excluded.col_count,
			navigable_count = excluded.navigable_count,
			sample_height = excluded.sample_height,
			cell_size = excluded.cell_size,
			record_blob = excluded.record_blob`,
		r.Scene, r.RunID, r.CreatedUnixNanos, r.Rows, r.Cols, r.NavigableCount, r.Height, r.CellSize, blob)
	if err != nil {
		return fmt.Errorf("failed to upsert occupancy map: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO occupancy_map_runs (run_id, scene, created_unix_nanos, navigable_count)
		VALUES (?, ?, ?, ?)`,
		r.RunID, r.Scene, r.CreatedUnixNanos, r.NavigableCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	diagf("catalogued scene %q run %s", r.Scene, r.RunID)
	return nil
}

// Load returns the latest record of scene.
func (s *SQLiteStore) Load(ctx context.Context, scene string) (*occmap.Record, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT record_blob FROM occupancy_maps WHERE scene = ?`, scene).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: scene %q", ErrNotFound, scene)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query occupancy map: %w", err)
	}
	return occmap.Decode(blob)
}

// List returns a summary per catalogued scene, ordered by scene.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scene, run_id, created_unix_nanos, row_count, col_count, navigable_count, sample_height, cell_size
		FROM occupancy_maps ORDER BY scene`)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupancy maps: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Scene, &sm.RunID, &sm.CreatedUnixNanos, &sm.Rows, &sm.Cols, &sm.NavigableCount, &sm.Height, &sm.CellSize); err != nil {
			return nil, fmt.Errorf("failed to scan occupancy map: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// RunCount returns how many builds have been recorded for scene.
func (s *SQLiteStore) RunCount(ctx context.Context, scene string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occupancy_map_runs WHERE scene = ?`, scene).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
