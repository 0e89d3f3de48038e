package types

// Client -> Server (HTTP, JSON bodies)
//
// POST /api/players   RegisterRequest  -> 201 Profile
// POST /api/login     LoginRequest     -> 200 Profile
// POST /api/join      PlayerRequest    -> 200 BoardSnapshot
// POST /api/hold      HoldRequest      -> 200 HoldResponse
// POST /api/release   PlayerRequest    -> 200 BoardSnapshot
// GET  /api/board                      -> 200 BoardSnapshot
// GET  /api/leaderboard?limit=N        -> 200 Profile[]
//
// Errors: ErrorResponse with one of
//   unknown_player | not_online | invalid_square | admission_closed |
//   already_holding | square_taken | name_taken | invalid_credentials |
//   bad_request | internal

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Region      string `json:"region"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PlayerRequest struct {
	PlayerID string `json:"playerId"`
}

type HoldRequest struct {
	PlayerID string `json:"playerId"`
	Square   *int   `json:"square"`
}

type HoldResponse struct {
	Board          BoardSnapshot `json:"board"`
	LevelCompleted bool          `json:"levelCompleted"`
}

type Profile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Region          string `json:"region"`
	LevelsCompleted int    `json:"levelsCompleted"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
