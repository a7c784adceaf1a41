package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HostileDef is the static definition shared by every unit of a kind
type HostileDef struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Attack int    `json:"attack" yaml:"attack"`
	MaxHP  int    `json:"max_hp" yaml:"max_hp"`
}

// ItemDef describes a collectible
type ItemDef struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Short       string `json:"short" yaml:"short"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Rarity      string `json:"rarity,omitempty" yaml:"rarity,omitempty"`
}

// Registry holds read-only lookup tables built once at startup and shared by reference
type Registry struct {
	Hostiles map[string]HostileDef `json:"hostiles" yaml:"hostiles"`
	Items    map[string]ItemDef    `json:"items" yaml:"items"`
}

// Attack returns the damage dealt by a hostile of the given kind
func (r *Registry) Attack(kind string) (int, error) {
	def, ok := r.Hostiles[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownHostile, kind)
	}
	return def.Attack, nil
}

// Validate checks that every definition is self-consistent
func (r *Registry) Validate() error {
	if len(r.Hostiles) == 0 {
		return fmt.Errorf("registry validation: at least one hostile definition is required")
	}
	for id, def := range r.Hostiles {
		if def.ID != "" && def.ID != id {
			return fmt.Errorf("registry validation: hostile key %q does not match id %q", id, def.ID)
		}
		if def.Attack < 0 {
			return fmt.Errorf("registry validation: hostile %q has negative attack %d", id, def.Attack)
		}
		if def.MaxHP < 1 {
			return fmt.Errorf("registry validation: hostile %q must have max_hp >= 1, got %d", id, def.MaxHP)
		}
	}
	for id, def := range r.Items {
		if def.ID != "" && def.ID != id {
			return fmt.Errorf("registry validation: item key %q does not match id %q", id, def.ID)
		}
	}
	return nil
}

// DefaultRegistry returns the built-in hostile and item tables
func DefaultRegistry() *Registry {
	return &Registry{
		Hostiles: map[string]HostileDef{
			"scout":   {ID: "scout", Name: "Scout Drone", Attack: 1, MaxHP: 1},
			"guard":   {ID: "guard", Name: "Sentinel", Attack: 2, MaxHP: 3},
			"stalker": {ID: "stalker", Name: "Stalker", Attack: 3, MaxHP: 2},
		},
		Items: map[string]ItemDef{
			"medkit": {
				ID:          "medkit",
				Name:        "Field Medkit",
				Short:       "A medkit! We can patch up with this.",
				Description: "Standard-issue survey kit, still sealed.",
				Rarity:      "common",
			},
			"shield": {
				ID:     "shield",
				Name:   "Barrier Cell",
				Short:  "A barrier cell. That should hold for one hit.",
				Rarity: "rare",
			},
			"scanner": {
				ID:     "scanner",
				Name:   "Pulse Scanner",
				Short:  "A scanner! Now we can sweep the area.",
				Rarity: "common",
			},
		},
	}
}

// LoadRegistry loads hostile and item definitions from a YAML file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	for id, def := range reg.Hostiles {
		if def.ID == "" {
			def.ID = id
			reg.Hostiles[id] = def
		}
	}
	for id, def := range reg.Items {
		if def.ID == "" {
			def.ID = id
			reg.Items[id] = def
		}
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}
