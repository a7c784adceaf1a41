package engine

import (
	"errors"
	"testing"
)

func hostile(uid, kind string, idx int, route ...Coord) HostileState {
	return HostileState{UID: uid, Kind: kind, Route: route, Idx: idx, HP: 1}
}

func TestStepHostileCycles(t *testing.T) {
	h := hostile("h1", "scout", 0, Coord{X: 0, Y: 0}, Coord{X: 1, Y: 0}, Coord{X: 2, Y: 0})

	want := []Coord{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0}}
	for i, w := range want {
		h = StepHostile(h)
		if got := h.Position(); got != w {
			t.Errorf("step %d: position = %+v, want %+v", i+1, got, w)
		}
	}
}

func TestStepHostileStationary(t *testing.T) {
	h := hostile("h1", "guard", 0, Coord{X: 3, Y: 3})
	for i := 0; i < 100; i++ {
		h = StepHostile(h)
		if h.Idx != 0 || h.Position() != (Coord{X: 3, Y: 3}) {
			t.Fatalf("step %d: stationary hostile moved to %+v", i+1, h.Position())
		}
	}
}

func TestStepAllFreshSlice(t *testing.T) {
	prev := []HostileState{
		hostile("a", "scout", 0, Coord{X: 0, Y: 0}, Coord{X: 0, Y: 1}),
		hostile("b", "scout", 1, Coord{X: 2, Y: 2}, Coord{X: 3, Y: 2}),
	}
	next := StepAll(prev)

	if prev[0].Idx != 0 || prev[1].Idx != 1 {
		t.Error("StepAll mutated its input")
	}
	if next[0].Idx != 1 || next[1].Idx != 0 {
		t.Errorf("unexpected indices after step: %d, %d", next[0].Idx, next[1].Idx)
	}
}

func TestSpawnHostiles(t *testing.T) {
	reg := DefaultRegistry()
	spawns := []HostileSpawn{
		{Kind: "guard", UID: "g1", Route: []Coord{{X: 1, Y: 1}, {X: 1, Y: 2}}},
		{Kind: "scout", UID: "s1", Route: []Coord{{X: 3, Y: 3}}},
	}

	hs, err := SpawnHostiles(spawns, reg)
	if err != nil {
		t.Fatalf("SpawnHostiles failed: %v", err)
	}
	if len(hs) != 2 {
		t.Fatalf("expected 2 hostiles, got %d", len(hs))
	}
	if hs[0].HP != reg.Hostiles["guard"].MaxHP || hs[0].Idx != 0 {
		t.Errorf("guard spawned as %+v", hs[0])
	}

	spawns[0].Route[0] = Coord{X: 4, Y: 4}
	if hs[0].Route[0] != (Coord{X: 1, Y: 1}) {
		t.Error("spawned hostile shares its route with the manifest")
	}

	if _, err := SpawnHostiles([]HostileSpawn{{Kind: "scout", UID: "x"}}, reg); !errors.Is(err, ErrEmptyRoute) {
		t.Errorf("expected ErrEmptyRoute, got %v", err)
	}
	if _, err := SpawnHostiles([]HostileSpawn{{Kind: "dragon", UID: "x", Route: []Coord{{}}}}, reg); !errors.Is(err, ErrUnknownHostile) {
		t.Errorf("expected ErrUnknownHostile, got %v", err)
	}
}

func TestValidateSpawns(t *testing.T) {
	reg := DefaultRegistry()
	route := []Coord{{X: 0, Y: 0}}

	tests := []struct {
		name    string
		spawns  []HostileSpawn
		wantErr error
	}{
		{"valid", []HostileSpawn{{Kind: "scout", UID: "a", Route: route}}, nil},
		{"empty route", []HostileSpawn{{Kind: "scout", UID: "a"}}, ErrEmptyRoute},
		{"unknown kind", []HostileSpawn{{Kind: "wyrm", UID: "a", Route: route}}, ErrUnknownHostile},
		{"off grid waypoint", []HostileSpawn{{Kind: "scout", UID: "a", Route: []Coord{{X: 5, Y: 0}}}}, ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpawns(tt.spawns, 5, 5, reg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	dup := []HostileSpawn{{Kind: "scout", UID: "a", Route: route}, {Kind: "scout", UID: "a", Route: route}}
	if err := ValidateSpawns(dup, 5, 5, reg); err == nil {
		t.Error("expected an error for duplicate uids")
	}
	if err := ValidateSpawns([]HostileSpawn{{Kind: "scout", Route: route}}, 5, 5, reg); err == nil {
		t.Error("expected an error for a missing uid")
	}
}

func TestResolve(t *testing.T) {
	a := Coord{X: 2, Y: 2}
	b := Coord{X: 2, Y: 1}
	c := Coord{X: 3, Y: 3}

	tests := []struct {
		name       string
		prevPlayer Coord
		nextPlayer Coord
		prev       []HostileState
		want       HitResult
	}{
		{
			name:       "no hostiles",
			prevPlayer: a,
			nextPlayer: b,
			want:       HitResult{Kind: HitNone, Index: -1},
		},
		{
			name:       "hostile lands on destination",
			prevPlayer: a,
			nextPlayer: b,
			prev:       []HostileState{hostile("h", "scout", 0, Coord{X: 1, Y: 1}, b)},
			want:       HitResult{Kind: HitDirect, Index: 0},
		},
		{
			name:       "position swap is a crossing",
			prevPlayer: a,
			nextPlayer: b,
			prev:       []HostileState{hostile("h", "scout", 0, b, a)},
			want:       HitResult{Kind: HitCrossed, Index: 0},
		},
		{
			name:       "hostile leaves destination without swapping",
			prevPlayer: a,
			nextPlayer: b,
			prev:       []HostileState{hostile("h", "scout", 0, b, c)},
			want:       HitResult{Kind: HitNone, Index: -1},
		},
		{
			name:       "stationary hostile on destination",
			prevPlayer: a,
			nextPlayer: b,
			prev:       []HostileState{hostile("h", "scout", 0, b)},
			want:       HitResult{Kind: HitDirect, Index: 0},
		},
		{
			name:       "hit on a later index beats an earlier crossing",
			prevPlayer: a,
			nextPlayer: b,
			prev: []HostileState{
				hostile("cross", "scout", 0, b, a),
				hostile("land", "scout", 0, c, b),
			},
			want: HitResult{Kind: HitDirect, Index: 1},
		},
		{
			name:       "lowest hit index wins",
			prevPlayer: a,
			nextPlayer: b,
			prev: []HostileState{
				hostile("first", "scout", 0, c, b),
				hostile("second", "scout", 0, Coord{X: 0, Y: 0}, b),
			},
			want: HitResult{Kind: HitDirect, Index: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := StepAll(tt.prev)
			got := Resolve(tt.prevPlayer, tt.nextPlayer, tt.prev, next)
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
