// Package postgres provides a gorm-backed player directory on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/squares-backend/internal/directory"
)

const uniqueViolation = "23505"

type player struct {
	ID              string `gorm:"primaryKey;type:uuid"`
	Username        string `gorm:"uniqueIndex;not null"`
	DisplayName     string `gorm:"not null"`
	Region          string `gorm:"not null;default:''"`
	LevelsCompleted int    `gorm:"not null;default:0;index"`
	PasswordHash    []byte `gorm:"not null"`
}

func (p player) profile() directory.Profile {
	return directory.Profile{
		ID:              p.ID,
		Username:        p.Username,
		DisplayName:     p.DisplayName,
		Region:          p.Region,
		LevelsCompleted: p.LevelsCompleted,
	}
}

// Store persists players in PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the players table.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&player{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate players: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Register(ctx context.Context, reg directory.Registration) (directory.Profile, error) {
	rec, err := directory.NewRecord(reg)
	if err != nil {
		return directory.Profile{}, err
	}
	row := player{
		ID:           rec.ID,
		Username:     rec.Username,
		DisplayName:  rec.DisplayName,
		Region:       rec.Region,
		PasswordHash: rec.PasswordHash,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return directory.Profile{}, directory.ErrNameTaken
		}
		return directory.Profile{}, fmt.Errorf("insert player: %w", err)
	}
	return row.profile(), nil
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (directory.Profile, error) {
	var row player
	err := s.db.WithContext(ctx).
		Where("username = ?", directory.NormalizeUsername(username)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return directory.Profile{}, directory.ErrInvalidCredentials
	}
	if err != nil {
		return directory.Profile{}, fmt.Errorf("select player: %w", err)
	}
	if err := directory.CheckPassword(row.PasswordHash, password); err != nil {
		return directory.Profile{}, err
	}
	return row.profile(), nil
}

func (s *Store) Lookup(ctx context.Context, id string) (directory.Profile, error) {
	var row player
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		// malformed uuids are reported by postgres as invalid text representation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return directory.Profile{}, directory.ErrNotFound
		}
		return directory.Profile{}, fmt.Errorf("select player: %w", err)
	}
	// uuid columns accept other spellings of the same id; only the canonical one matches
	if row.ID != id {
		return directory.Profile{}, directory.ErrNotFound
	}
	return row.profile(), nil
}

func (s *Store) CreditLevelCompletion(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&player{}).
			Where("id IN ?", ids).
			UpdateColumn("levels_completed", gorm.Expr("levels_completed + 1"))
		if res.Error != nil {
			return fmt.Errorf("credit players: %w", res.Error)
		}
		if res.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("credit players: %d of %d found: %w", res.RowsAffected, len(ids), directory.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]directory.Profile, error) {
	var rows []player
	err := s.db.WithContext(ctx).
		Order("levels_completed DESC").
		Order("display_name ASC").
		Order("id ASC").
		Limit(directory.ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	out := make([]directory.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.profile())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

var _ directory.Store = (*Store)(nil)
