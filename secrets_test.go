package main

import "testing"

func sessionWithConnected(slots ...int) *Session {
	s := &Session{Code: "ABCDE"}
	for i := range s.Players {
		s.Players[i].Name = "Player"
	}
	for _, i := range slots {
		s.Players[i].ID = "conn"
		s.Players[i].Connected = true
	}
	return s
}

func TestAssignSecrets(t *testing.T) {
	tests := []struct {
		name         string
		connected    []int
		impostorPick int
		pairPick     int
		wantImpostor int
	}{
		{"two players, first is impostor", []int{0, 1}, 0, 0, 0},
		{"two players, second is impostor", []int{0, 1}, 1, 2, 1},
		{"sparse roster", []int{0, 2, 4}, 1, 3, 2},
		{"full roster", []int{0, 1, 2, 3, 4}, 4, 5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBroker()
			b.randFunc = scriptedRand(tt.impostorPick, tt.pairPick)

			s := sessionWithConnected(tt.connected...)
			b.assignSecrets(s)

			if !s.GameStarted {
				t.Error("GameStarted not set")
			}

			pair := wordPairs[tt.pairPick]
			impostors := 0
			for _, i := range tt.connected {
				p := s.Players[i]
				if p.IsImpostor {
					impostors++
					if i != tt.wantImpostor {
						t.Errorf("slot %d is impostor, want slot %d", i, tt.wantImpostor)
					}
					if p.Password != pair.impostor {
						t.Errorf("impostor word = %q, want %q", p.Password, pair.impostor)
					}
				} else if p.Password != pair.normal {
					t.Errorf("slot %d word = %q, want %q", i, p.Password, pair.normal)
				}
			}
			if impostors != 1 {
				t.Errorf("%d impostors among connected slots, want 1", impostors)
			}

			for i := range s.Players {
				if s.Players[i].Connected {
					continue
				}
				if s.Players[i].Password != "" || s.Players[i].IsImpostor {
					t.Errorf("disconnected slot %d holds round state: %+v", i, s.Players[i])
				}
			}
		})
	}
}

func TestAssignSecretsTooFewConnected(t *testing.T) {
	tests := []struct {
		name      string
		connected []int
	}{
		{"empty session", nil},
		{"single player", []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBroker()
			b.randFunc = func(int) int {
				t.Fatal("randFunc called below minimum player count")
				return 0
			}

			s := sessionWithConnected(tt.connected...)
			s.Players[3].Password = "STALE"
			s.Players[3].IsImpostor = true

			b.assignSecrets(s)

			if s.GameStarted {
				t.Error("GameStarted set below minimum player count")
			}
			if s.Players[3].Password != "STALE" || !s.Players[3].IsImpostor {
				t.Errorf("no-op assignment mutated roster: %+v", s.Players[3])
			}
		})
	}
}

func TestAssignSecretsClearsPreviousRound(t *testing.T) {
	b := testBroker()
	b.randFunc = scriptedRand(0, 1)

	s := sessionWithConnected(0, 1)
	// Leftovers from an earlier round on a now-vacant slot.
	s.Players[4].Password = wordPairs[0].impostor
	s.Players[4].IsImpostor = true

	b.assignSecrets(s)

	if s.Players[4].Password != "" || s.Players[4].IsImpostor {
		t.Errorf("previous round state survived reassignment: %+v", s.Players[4])
	}
}

func TestWordPairsAreDistinct(t *testing.T) {
	for i, pair := range wordPairs {
		if pair.normal == pair.impostor {
			t.Errorf("pair %d: impostor word %q is identical to the normal word", i, pair.impostor)
		}
		if pair.normal == "" || pair.impostor == "" {
			t.Errorf("pair %d has an empty word", i)
		}
	}
}
