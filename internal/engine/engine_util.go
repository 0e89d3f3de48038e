package engine

import "slices"

func NewState(squareCount int) State {
	if squareCount < 1 {
		squareCount = InitialSquareCount
	}
	return State{
		Level:       1,
		SquareCount: squareCount,
		Occupancy:   map[int]string{},
		Players:     map[string]OnlinePlayer{},
		Order:       []string{},
	}
}

func NewEmptyState() State {
	return NewState(InitialSquareCount)
}

// Clone returns a deep copy so the result can be mutated without touching s.
func (s State) Clone() State {
	c := State{
		Level:       s.Level,
		SquareCount: s.SquareCount,
		Occupancy:   make(map[int]string, len(s.Occupancy)),
		Players:     make(map[string]OnlinePlayer, len(s.Players)),
		Order:       slices.Clone(s.Order),
	}
	for sq, id := range s.Occupancy {
		c.Occupancy[sq] = id
	}
	for id, p := range s.Players {
		if p.HeldSquare != nil {
			p.HeldSquare = intPtr(*p.HeldSquare)
		}
		c.Players[id] = p
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

func intPtr(v int) *int { return &v }
