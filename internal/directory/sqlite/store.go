// Package sqlite provides a SQLite-backed player directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/DoyleJ11/squares-backend/internal/directory"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id               TEXT PRIMARY KEY,
	username         TEXT NOT NULL UNIQUE,
	display_name     TEXT NOT NULL,
	region           TEXT NOT NULL DEFAULT '',
	levels_completed INTEGER NOT NULL DEFAULT 0,
	password_hash    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS players_levels_completed ON players (levels_completed DESC);
`

// Store persists players in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite player store and creates the schema if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Register(ctx context.Context, reg directory.Registration) (directory.Profile, error) {
	rec, err := directory.NewRecord(reg)
	if err != nil {
		return directory.Profile{}, err
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO players (id, username, display_name, region, levels_completed, password_hash)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		rec.ID,
		rec.Username,
		rec.DisplayName,
		rec.Region,
		rec.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return directory.Profile{}, directory.ErrNameTaken
		}
		return directory.Profile{}, fmt.Errorf("insert player: %w", err)
	}
	return rec.Profile, nil
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (directory.Profile, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, display_name, region, levels_completed, password_hash
		 FROM players WHERE username = ?`,
		directory.NormalizeUsername(username),
	)
	var (
		p    directory.Profile
		hash []byte
	)
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Region, &p.LevelsCompleted, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, directory.ErrInvalidCredentials
	}
	if err != nil {
		return directory.Profile{}, fmt.Errorf("select player: %w", err)
	}
	if err := directory.CheckPassword(hash, password); err != nil {
		return directory.Profile{}, err
	}
	return p, nil
}

func (s *Store) Lookup(ctx context.Context, id string) (directory.Profile, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, display_name, region, levels_completed FROM players WHERE id = ?`,
		id,
	)
	var p directory.Profile
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Region, &p.LevelsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Profile{}, fmt.Errorf("select player: %w", err)
	}
	return p, nil
}

func (s *Store) CreditLevelCompletion(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE players SET levels_completed = levels_completed + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("credit %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("credit %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("credit %s: %w", id, directory.ErrNotFound)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}
	return nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]directory.Profile, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, username, display_name, region, levels_completed
		 FROM players
		 ORDER BY levels_completed DESC, display_name ASC, id ASC
		 LIMIT ?`,
		directory.ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	defer rows.Close()

	var out []directory.Profile
	for rows.Next() {
		var p directory.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Region, &p.LevelsCompleted); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ directory.Store = (*Store)(nil)
