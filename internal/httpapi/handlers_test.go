package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/engine"
	"github.com/DoyleJ11/squares-backend/internal/lobby"
	pub "github.com/DoyleJ11/squares-backend/pkg/types"
)

type testServer struct {
	handler http.Handler
	store   *directory.Memory
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	store := directory.NewMemory()
	log := zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	l := lobby.NewLobby(ctx, engine.NewEmptyState(), store, log)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return testServer{handler: SetupRoutes(l, store, log, Options{SubscriberBuffer: 4}), store: store}
}

func (s testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (s testServer) register(t *testing.T, username string) pub.Profile {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/players", pub.RegisterRequest{
		Username:    username,
		Password:    "pw-" + username,
		DisplayName: username,
		Region:      "eu",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[pub.Profile](t, rec)
}

func sq(i int) *int { return &i }

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	p := s.register(t, "ada")

	rec := s.do(t, http.MethodPost, "/api/players", pub.RegisterRequest{Username: "ADA", Password: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "name_taken", decodeBody[pub.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/login", pub.LoginRequest{Username: "ada", Password: "pw-ada"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, decodeBody[pub.Profile](t, rec).ID)

	rec = s.do(t, http.MethodPost, "/api/login", pub.LoginRequest{Username: "ada", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFullLevelOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var ids []string
	for i := 1; i <= 4; i++ {
		p := s.register(t, fmt.Sprintf("p%d", i))
		ids = append(ids, p.ID)
		rec := s.do(t, http.MethodPost, "/api/join", pub.PlayerRequest{PlayerID: p.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	for i, id := range ids {
		rec := s.do(t, http.MethodPost, "/api/hold", pub.HoldRequest{PlayerID: id, Square: sq(i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[pub.HoldResponse](t, rec)
		if i < 3 {
			assert.False(t, res.LevelCompleted)
			assert.Equal(t, id, res.Board.Occupancy[i])
			continue
		}
		assert.True(t, res.LevelCompleted)
		assert.Equal(t, 2, res.Board.Level)
		assert.Equal(t, 8, res.Board.SquareCount)
		assert.Empty(t, res.Board.Occupancy)
	}

	rec := s.do(t, http.MethodGet, "/api/board", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decodeBody[pub.BoardSnapshot](t, rec)
	assert.Equal(t, 2, board.Level)
	require.Len(t, board.Players, 4)
	for _, p := range board.Players {
		assert.Equal(t, 1, p.LevelsCompleted)
		assert.Nil(t, p.HeldSquare)
	}

	rec = s.do(t, http.MethodGet, "/api/leaderboard?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decodeBody[[]pub.Profile](t, rec)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].LevelsCompleted)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for i := 1; i <= 3; i++ {
		p := s.register(t, fmt.Sprintf("e%d", i))
		ids = append(ids, p.ID)
	}

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown player join", "/api/join", pub.PlayerRequest{PlayerID: "ghost"}, http.StatusNotFound, "unknown_player"},
		{"hold before join", "/api/hold", pub.HoldRequest{PlayerID: ids[0], Square: sq(0)}, http.StatusConflict, "not_online"},
		{"release before join", "/api/release", pub.PlayerRequest{PlayerID: ids[0]}, http.StatusConflict, "not_online"},
		{"missing square", "/api/hold", pub.PlayerRequest{PlayerID: ids[0]}, http.StatusBadRequest, "bad_request"},
		{"unknown field", "/api/join", map[string]string{"player": "x"}, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeBody[pub.ErrorResponse](t, rec).Code)
		})
	}

	for _, id := range ids {
		rec := s.do(t, http.MethodPost, "/api/join", pub.PlayerRequest{PlayerID: id})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/hold", pub.HoldRequest{PlayerID: ids[0], Square: sq(5)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_square", decodeBody[pub.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/hold", pub.HoldRequest{PlayerID: ids[0], Square: sq(0)})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "admission_closed", decodeBody[pub.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/leaderboard?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReleaseWithoutHoldIsTolerated(t *testing.T) {
	s := newTestServer(t)
	p := s.register(t, "r1")
	rec := s.do(t, http.MethodPost, "/api/join", pub.PlayerRequest{PlayerID: p.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	joined := decodeBody[pub.BoardSnapshot](t, rec)

	rec = s.do(t, http.MethodPost, "/api/release", pub.PlayerRequest{PlayerID: p.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, joined, decodeBody[pub.BoardSnapshot](t, rec))
}

func TestRegisterOverlongPasswordIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/players", pub.RegisterRequest{
		Username: "longpw",
		Password: strings.Repeat("p", 80),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeBody[pub.ErrorResponse](t, rec).Code)
}
