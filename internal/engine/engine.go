package engine

import (
	"errors"
)

var ErrUnknownPlayer = errors.New("unknown player")
var ErrNotOnline = errors.New("player not online")
var ErrInvalidSquare = errors.New("invalid square")
var ErrAdmissionClosed = errors.New("admission closed: player count does not match square count")
var ErrAlreadyHolding = errors.New("player already holding a square")
var ErrSquareTaken = errors.New("square already taken")
var ErrUnsupportedCommand = errors.New("unsupported command")

const InitialSquareCount = 4

// Profile is the durable part of a player as seen by the engine.
type Profile struct {
	ID              string
	DisplayName     string
	Region          string
	LevelsCompleted int
}

type OnlinePlayer struct {
	Profile
	HeldSquare *int
}

type State struct {
	Level       int
	SquareCount int
	Occupancy   map[int]string
	Players     map[string]OnlinePlayer
	Order       []string // join order
}

type CommandType string

const (
	CmdJoin    CommandType = "Join"
	CmdHold    CommandType = "Hold"
	CmdRelease CommandType = "Release"
)

/*
	CmdJoin    -> EvtPlayerJoined (nothing if already online)
	CmdHold    -> EvtSquareHeld -> EvtLevelCompleted (only when every online player holds a square)
	CmdRelease -> EvtSquareReleased (nothing if no square held)
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Square   int
	Profile  Profile // CmdJoin only
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtSquareHeld     EventType = "SquareHeld"
	EvtSquareReleased EventType = "SquareReleased"
	EvtLevelCompleted EventType = "LevelCompleted"
)

type Event struct {
	Type     EventType
	PlayerID string
	Square   int
	Level    int      // EvtLevelCompleted: the level that was just completed
	Credited []string // EvtLevelCompleted: holders credited, in join order
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s itself.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		id := cmd.Profile.ID
		if id == "" {
			return nil, s, ErrUnknownPlayer
		}
		if _, ok := s.Players[id]; ok {
			return nil, s, nil
		}

		newState := s.Clone()
		newState.Players[id] = OnlinePlayer{Profile: cmd.Profile}
		newState.Order = append(newState.Order, id)
		return []Event{{Type: EvtPlayerJoined, PlayerID: id}}, newState, nil

	case CmdHold:
		player, ok := s.Players[cmd.PlayerID]
		if !ok {
			return nil, s, ErrNotOnline
		}
		if cmd.Square < 0 || cmd.Square >= s.SquareCount {
			return nil, s, ErrInvalidSquare
		}
		if len(s.Players) != s.SquareCount {
			return nil, s, ErrAdmissionClosed
		}
		if player.HeldSquare != nil {
			return nil, s, ErrAlreadyHolding
		}
		if _, taken := s.Occupancy[cmd.Square]; taken {
			return nil, s, ErrSquareTaken
		}

		newState := s.Clone()
		newState.Occupancy[cmd.Square] = cmd.PlayerID
		player.HeldSquare = intPtr(cmd.Square)
		newState.Players[cmd.PlayerID] = player

		events := []Event{{Type: EvtSquareHeld, PlayerID: cmd.PlayerID, Square: cmd.Square}}
		if isComplete(newState) {
			events = append(events, completeLevel(&newState))
		}
		return events, newState, nil

	case CmdRelease:
		player, ok := s.Players[cmd.PlayerID]
		if !ok {
			return nil, s, ErrNotOnline
		}
		if player.HeldSquare == nil {
			return nil, s, nil
		}

		square := *player.HeldSquare
		newState := s.Clone()
		delete(newState.Occupancy, square)
		player.HeldSquare = nil
		newState.Players[cmd.PlayerID] = player
		return []Event{{Type: EvtSquareReleased, PlayerID: cmd.PlayerID, Square: square}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func isComplete(s State) bool {
	return len(s.Occupancy) == s.SquareCount && len(s.Players) == s.SquareCount
}

// completeLevel credits every holder, advances the level and empties the board.
func completeLevel(s *State) Event {
	evt := Event{Type: EvtLevelCompleted, Level: s.Level}
	for _, id := range s.Order {
		p := s.Players[id]
		if p.HeldSquare == nil {
			continue
		}
		p.LevelsCompleted++
		p.HeldSquare = nil
		s.Players[id] = p
		evt.Credited = append(evt.Credited, id)
	}

	s.Level++
	s.SquareCount *= 2
	clear(s.Occupancy)
	return evt
}
