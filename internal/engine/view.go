package engine

// View is a read-only copy of the board and presence set, safe to hand to callers.
type View struct {
	Level       int
	SquareCount int
	Occupancy   map[int]string
	Players     []OnlinePlayer
}

func (s State) View() View {
	v := View{
		Level:       s.Level,
		SquareCount: s.SquareCount,
		Occupancy:   make(map[int]string, len(s.Occupancy)),
		Players:     make([]OnlinePlayer, 0, len(s.Order)),
	}
	for sq, id := range s.Occupancy {
		v.Occupancy[sq] = id
	}
	for _, id := range s.Order {
		p := s.Players[id]
		if p.HeldSquare != nil {
			p.HeldSquare = intPtr(*p.HeldSquare)
		}
		v.Players = append(v.Players, p)
	}
	return v
}

func (v View) Player(id string) (OnlinePlayer, bool) {
	for _, p := range v.Players {
		if p.ID == id {
			return p, true
		}
	}
	return OnlinePlayer{}, false
}

func (v View) Clone() View {
	c := View{
		Level:       v.Level,
		SquareCount: v.SquareCount,
		Occupancy:   make(map[int]string, len(v.Occupancy)),
		Players:     make([]OnlinePlayer, len(v.Players)),
	}
	for sq, id := range v.Occupancy {
		c.Occupancy[sq] = id
	}
	for i, p := range v.Players {
		if p.HeldSquare != nil {
			p.HeldSquare = intPtr(*p.HeldSquare)
		}
		c.Players[i] = p
	}
	return c
}
