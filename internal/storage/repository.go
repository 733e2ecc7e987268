package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"timebill/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the database in memory, so entries vanish on restart like
// the memory backend.
const DefaultDSN = "file:timebill?mode=memory&cache=shared"

// SQLiteRepository implements entries.Store on top of SQLite. Position in the
// sequence is the row order by seq.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single long-lived connection: the in-memory database dies with its
	// last connection, and it serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements entries.Store. The insert and the position lookup share
// a transaction so the position is the one the row was stored at.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Entry) (core.Entry, int, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, 0, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var index int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (id, entry_date, hours, description) VALUES (?, ?, ?, ?)`,
			e.ID, e.Date.String(), e.Hours, e.Description); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) - 1 FROM entries`).Scan(&index); err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Entry{}, 0, err
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"index", index,
		"date", e.Date.String(),
		"hours", e.Hours)

	return e, index, nil
}

// Replace implements entries.Store
func (r *SQLiteRepository) Replace(ctx context.Context, index int, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	var out core.Entry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		seq, current, err := rowAt(ctx, tx, index)
		if err != nil {
			return err
		}
		e.ID = current.ID
		if _, err := tx.ExecContext(ctx,
			`UPDATE entries SET entry_date = ?, hours = ?, description = ? WHERE seq = ?`,
			e.Date.String(), e.Hours, e.Description, seq); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		out = e
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	return out, nil
}

// Remove implements entries.Store
func (r *SQLiteRepository) Remove(ctx context.Context, index int) (core.Entry, error) {
	var out core.Entry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		seq, current, err := rowAt(ctx, tx, index)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE seq = ?`, seq); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		out = current
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	return out, nil
}

// All implements entries.Store
func (r *SQLiteRepository) All(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entry_date, hours, description FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Len implements entries.Store
func (r *SQLiteRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// rowAt resolves a zero based position to its row. SQLite treats a negative
// OFFSET as zero, so negative positions are rejected up front.
func rowAt(ctx context.Context, tx *sql.Tx, index int) (int64, core.Entry, error) {
	if index < 0 {
		return 0, core.Entry{}, fmt.Errorf("index %d: %w", index, core.ErrInvalidIndex)
	}
	row := tx.QueryRowContext(ctx,
		`SELECT seq, id, entry_date, hours, description FROM entries ORDER BY seq LIMIT 1 OFFSET ?`, index)

	var (
		seq     int64
		id      string
		rawDate string
		e       core.Entry
	)
	if err := row.Scan(&seq, &id, &rawDate, &e.Hours, &e.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, core.Entry{}, fmt.Errorf("index %d: %w", index, core.ErrInvalidIndex)
		}
		return 0, core.Entry{}, fmt.Errorf("select entry at %d: %w", index, err)
	}
	d, err := core.ParseDate(rawDate)
	if err != nil {
		return 0, core.Entry{}, fmt.Errorf("stored date %q: %w", rawDate, err)
	}
	e.ID = id
	e.Date = d
	return seq, e, nil
}

func scanEntry(s scanner) (core.Entry, error) {
	var (
		e       core.Entry
		rawDate string
	)
	if err := s.Scan(&e.ID, &rawDate, &e.Hours, &e.Description); err != nil {
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	d, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Entry{}, fmt.Errorf("stored date %q: %w", rawDate, err)
	}
	e.Date = d
	return e, nil
}
