// Package directory holds durable player profiles: registration, lookup and the
// levels-completed counter credited by the game coordinator.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound           = errors.New("player not found")
	ErrNameTaken          = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidProfile     = errors.New("invalid profile")
)

// Profile is the durable record of a registered player.
type Profile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Region          string `json:"region"`
	LevelsCompleted int    `json:"levelsCompleted"`
}

// Registration is the input to Register.
type Registration struct {
	Username    string
	Password    string
	DisplayName string
	Region      string
}

// Directory is what the game coordinator needs from player storage.
type Directory interface {
	// Lookup returns ErrNotFound when id is not registered.
	Lookup(ctx context.Context, id string) (Profile, error)
	// CreditLevelCompletion adds one completed level to every id in ids.
	// Either every id is credited or none is.
	CreditLevelCompletion(ctx context.Context, ids []string) error
}

// Store is the full directory used by the HTTP façade.
type Store interface {
	Directory
	Register(ctx context.Context, reg Registration) (Profile, error)
	Authenticate(ctx context.Context, username, password string) (Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]Profile, error)
	Close() error
}

// Record is a validated registration ready to be stored.
type Record struct {
	Profile
	PasswordHash []byte
}

// NewRecord validates reg, assigns a fresh id and hashes the password.
func NewRecord(reg Registration) (Record, error) {
	username := NormalizeUsername(reg.Username)
	display := norm.NFC.String(strings.TrimSpace(reg.DisplayName))
	region := strings.ToUpper(strings.TrimSpace(reg.Region))
	if username == "" {
		return Record{}, fmt.Errorf("%w: username is required", ErrInvalidProfile)
	}
	if reg.Password == "" {
		return Record{}, fmt.Errorf("%w: password is required", ErrInvalidProfile)
	}
	if display == "" {
		display = username
	}

	if len(reg.Password) > MaxPasswordBytes {
		return Record{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidProfile, MaxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err != nil {
		return Record{}, fmt.Errorf("hash password: %w", err)
	}
	return Record{
		Profile: Profile{
			ID:          uuid.NewString(),
			Username:    username,
			DisplayName: display,
			Region:      region,
		},
		PasswordHash: hash,
	}, nil
}

// NormalizeUsername folds usernames so lookups are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(username)))
}

func CheckPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// ClampLimit maps a requested leaderboard size into [1, MaxLeaderboardLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}
