package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/squares-backend/internal/directory"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "players.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func register(t *testing.T, s *Store, username string) directory.Profile {
	t.Helper()
	p, err := s.Register(context.Background(), directory.Registration{
		Username:    username,
		Password:    "pw-" + username,
		DisplayName: username,
		Region:      "eu",
	})
	require.NoError(t, err)
	return p
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	assert.Error(t, err)
}

func TestRegisterLookupAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempStore(t)

	p := register(t, store, "dana")
	got, err := store.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = store.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	authed, err := store.Authenticate(ctx, "DANA", "pw-dana")
	require.NoError(t, err)
	assert.Equal(t, p.ID, authed.ID)

	_, err = store.Authenticate(ctx, "dana", "nope")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	register(t, store, "eve")
	_, err := store.Register(context.Background(), directory.Registration{Username: "eve", Password: "x"})
	assert.ErrorIs(t, err, directory.ErrNameTaken)
}

func TestCreditRollsBackOnMissingPlayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempStore(t)
	a := register(t, store, "a")
	b := register(t, store, "b")

	require.NoError(t, store.CreditLevelCompletion(ctx, []string{a.ID, b.ID}))
	err := store.CreditLevelCompletion(ctx, []string{a.ID, "ghost"})
	assert.ErrorIs(t, err, directory.ErrNotFound)

	got, err := store.Lookup(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LevelsCompleted)

	board, err := store.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "a", board[0].DisplayName)
}

func TestCreditSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.db")

	store, err := Open(path)
	require.NoError(t, err)
	p := register(t, store, "frank")
	require.NoError(t, store.CreditLevelCompletion(ctx, []string{p.ID}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LevelsCompleted)
}

func TestOpenUsesDurableSync(t *testing.T) {
	t.Parallel()
	store := openTempStore(t)

	var journal string
	require.NoError(t, store.sqlDB.QueryRow(`PRAGMA journal_mode`).Scan(&journal))
	assert.Equal(t, "wal", journal)

	// 2 is FULL
	var sync int
	require.NoError(t, store.sqlDB.QueryRow(`PRAGMA synchronous`).Scan(&sync))
	assert.Equal(t, 2, sync)
}
