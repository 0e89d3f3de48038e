package types

import (
	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/lobby"
	pub "github.com/DoyleJ11/squares-backend/pkg/types"
)

type ClientMessage struct {
	Type string `json:"type"` // "Ping"
}

type ServerMessage struct {
	Type  string             `json:"type"` // "BoardSnapshot" | "Pong" | "Error"
	Board *pub.BoardSnapshot `json:"board,omitempty"`
	Error string             `json:"error,omitempty"`
}

func BoardFromSnapshot(s lobby.Snapshot) pub.BoardSnapshot {
	out := pub.BoardSnapshot{
		Version:     s.Version,
		Level:       s.Board.Level,
		SquareCount: s.Board.SquareCount,
		Occupancy:   make(map[int]string, len(s.Board.Occupancy)),
		Players:     make([]pub.Player, 0, len(s.Board.Players)),
	}
	for sq, id := range s.Board.Occupancy {
		out.Occupancy[sq] = id
	}
	for _, p := range s.Board.Players {
		out.Players = append(out.Players, pub.Player{
			ID:              p.ID,
			DisplayName:     p.DisplayName,
			Region:          p.Region,
			LevelsCompleted: p.LevelsCompleted,
			HeldSquare:      p.HeldSquare,
		})
	}
	return out
}

func ProfileFromDirectory(p directory.Profile) pub.Profile {
	return pub.Profile{
		ID:              p.ID,
		Username:        p.Username,
		DisplayName:     p.DisplayName,
		Region:          p.Region,
		LevelsCompleted: p.LevelsCompleted,
	}
}
