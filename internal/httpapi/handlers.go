package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/engine"
	"github.com/DoyleJ11/squares-backend/internal/lobby"
	"github.com/DoyleJ11/squares-backend/internal/types"
	pub "github.com/DoyleJ11/squares-backend/pkg/types"
)

const maxBodyBytes = 1 << 16

func Register(store directory.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pub.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := store.Register(r.Context(), directory.Registration{
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Region:      req.Region,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("player registered", zap.String("player_id", p.ID), zap.String("username", p.Username))
		writeJSON(w, http.StatusCreated, types.ProfileFromDirectory(p))
	}
}

func Login(store directory.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pub.LoginRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := store.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ProfileFromDirectory(p))
	}
}

func Join(l *lobby.Lobby, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pub.PlayerRequest
		if !decode(w, r, &req) {
			return
		}
		snap, err := l.Join(r.Context(), req.PlayerID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.BoardFromSnapshot(snap))
	}
}

func Hold(l *lobby.Lobby, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pub.HoldRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Square == nil {
			writeJSON(w, http.StatusBadRequest, pub.ErrorResponse{Code: "bad_request", Message: "square is required"})
			return
		}
		res, err := l.Hold(r.Context(), req.PlayerID, *req.Square)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, pub.HoldResponse{
			Board:          types.BoardFromSnapshot(res.Snapshot),
			LevelCompleted: res.LevelCompleted,
		})
	}
}

func Release(l *lobby.Lobby, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pub.PlayerRequest
		if !decode(w, r, &req) {
			return
		}
		snap, err := l.Release(r.Context(), req.PlayerID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.BoardFromSnapshot(snap))
	}
}

func Board(l *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.BoardFromSnapshot(l.Board()))
	}
}

func Leaderboard(store directory.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := directory.DefaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, pub.ErrorResponse{Code: "bad_request", Message: "limit must be a number"})
				return
			}
			limit = n
		}
		profiles, err := store.Leaderboard(r.Context(), limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]pub.Profile, 0, len(profiles))
		for _, p := range profiles {
			out = append(out, types.ProfileFromDirectory(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, pub.ErrorResponse{Code: "bad_request", Message: "bad json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{engine.ErrUnknownPlayer, http.StatusNotFound, "unknown_player"},
	{engine.ErrNotOnline, http.StatusConflict, "not_online"},
	{engine.ErrInvalidSquare, http.StatusBadRequest, "invalid_square"},
	{engine.ErrAdmissionClosed, http.StatusConflict, "admission_closed"},
	{engine.ErrAlreadyHolding, http.StatusConflict, "already_holding"},
	{engine.ErrSquareTaken, http.StatusConflict, "square_taken"},
	{directory.ErrNameTaken, http.StatusConflict, "name_taken"},
	{directory.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{directory.ErrInvalidProfile, http.StatusBadRequest, "bad_request"},
	{lobby.ErrClosed, http.StatusServiceUnavailable, "unavailable"},
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, pub.ErrorResponse{Code: e.code, Message: err.Error()})
			return
		}
	}
	log.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, pub.ErrorResponse{Code: "internal", Message: "internal error"})
}
