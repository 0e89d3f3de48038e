package types

// BoardSnapshot:
//   version: number         // bumps on every committed change
//   level: number
//   squareCount: number
//   occupancy: { [square]: playerId }   // sparse
//   players: Player[]       // join order
type BoardSnapshot struct {
	Version     int            `json:"version"`
	Level       int            `json:"level"`
	SquareCount int            `json:"squareCount"`
	Occupancy   map[int]string `json:"occupancy"`
	Players     []Player       `json:"players"`
}

type Player struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	Region          string `json:"region"`
	LevelsCompleted int    `json:"levelsCompleted"`
	HeldSquare      *int   `json:"heldSquare"` // null when not holding
}
