package engine

import "fmt"

// HostileSpawn is one entry of a chapter's static spawn manifest
type HostileSpawn struct {
	Kind  string  `json:"kind" yaml:"kind"`
	UID   string  `json:"uid" yaml:"uid"`
	Route []Coord `json:"route" yaml:"route"`
}

// StepHostile advances h one waypoint along its cyclic route
func StepHostile(h HostileState) HostileState {
	h.Idx = (h.Idx + 1) % len(h.Route)
	return h
}

// StepAll steps every hostile and returns a fresh slice
func StepAll(hs []HostileState) []HostileState {
	out := make([]HostileState, len(hs))
	for i, h := range hs {
		out[i] = StepHostile(h)
	}
	return out
}

// SpawnHostiles instantiates the manifest at the start of each route with full health
func SpawnHostiles(spawns []HostileSpawn, registry *Registry) ([]HostileState, error) {
	out := make([]HostileState, 0, len(spawns))
	for _, s := range spawns {
		def, ok := registry.Hostiles[s.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q (uid %s)", ErrUnknownHostile, s.Kind, s.UID)
		}
		if len(s.Route) == 0 {
			return nil, fmt.Errorf("%w: uid %s", ErrEmptyRoute, s.UID)
		}
		out = append(out, HostileState{
			UID:   s.UID,
			Kind:  s.Kind,
			Route: append([]Coord(nil), s.Route...),
			Idx:   0,
			HP:    def.MaxHP,
		})
	}
	return out, nil
}

// ValidateSpawns checks a spawn manifest against a rows x cols grid
func ValidateSpawns(spawns []HostileSpawn, rows, cols int, registry *Registry) error {
	seen := make(map[string]bool, len(spawns))
	for i, s := range spawns {
		if s.UID == "" {
			return fmt.Errorf("spawn %d: uid is required", i)
		}
		if seen[s.UID] {
			return fmt.Errorf("spawn %d: duplicate uid %q", i, s.UID)
		}
		seen[s.UID] = true

		if _, ok := registry.Hostiles[s.Kind]; !ok {
			return fmt.Errorf("spawn %s: %w: %q", s.UID, ErrUnknownHostile, s.Kind)
		}
		if len(s.Route) == 0 {
			return fmt.Errorf("spawn %s: %w", s.UID, ErrEmptyRoute)
		}
		for j, p := range s.Route {
			if p.X < 0 || p.Y < 0 || p.X >= cols || p.Y >= rows {
				return fmt.Errorf("spawn %s: waypoint %d: %w: (%d,%d) on %dx%d board",
					s.UID, j, ErrOutOfBounds, p.X, p.Y, cols, rows)
			}
		}
	}
	return nil
}
