package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ruleset selects the authoritative win condition of a chapter
type Ruleset string

const (
	// RulesetGoal wins by reaching the goal cell with enough items collected
	RulesetGoal Ruleset = "goal"
	// RulesetClear wins once every non-mine cell is open; zero cells cascade
	RulesetClear Ruleset = "clear"
)

// ChapterConfig holds the static parameters of a chapter
type ChapterConfig struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description" yaml:"description"`
	Rows           int            `json:"rows" yaml:"rows"`
	Cols           int            `json:"cols" yaml:"cols"`
	Mines          int            `json:"mines" yaml:"mines"`
	RequiredItems  int            `json:"required_items" yaml:"required_items"`
	MaxDecoy       int            `json:"max_decoy" yaml:"max_decoy"`
	Ruleset        Ruleset        `json:"ruleset,omitempty" yaml:"ruleset,omitempty"`
	Items          []ItemQuota    `json:"items,omitempty" yaml:"items,omitempty"`
	Events         []string       `json:"events,omitempty" yaml:"events,omitempty"`
	Goal           bool           `json:"goal" yaml:"goal"`
	Spawns         []HostileSpawn `json:"spawns,omitempty" yaml:"spawns,omitempty"`
	Unlocks        string         `json:"unlocks,omitempty" yaml:"unlocks,omitempty"`
	AvoidCollected bool           `json:"avoid_collected,omitempty" yaml:"avoid_collected,omitempty"`
}

// EffectiveRuleset defaults an empty ruleset to the goal rules
func (c *ChapterConfig) EffectiveRuleset() Ruleset {
	if c.Ruleset == "" {
		return RulesetGoal
	}
	return c.Ruleset
}

// Spawn returns the player's entry cell
func (c *ChapterConfig) Spawn() Coord {
	return DefaultSpawn(c.Rows, c.Cols)
}

// TotalItems counts the items the manifest places
func (c *ChapterConfig) TotalItems() int {
	n := 0
	for _, q := range c.Items {
		n += q.Count
	}
	return n
}

// ValidateChapterConfig validates a chapter for correctness and playability
func ValidateChapterConfig(config *ChapterConfig, registry *Registry) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := validateChapter(config, registry); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateChapter(config *ChapterConfig, registry *Registry) error {
	if config.ID == "" {
		return errors.New("config validation: id is required")
	}
	if config.Name == "" {
		return errors.New("config validation: name is required")
	}

	if config.Rows < MinGridSize || config.Rows > MaxGridSize {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Rows)
	}
	if config.Cols < MinGridSize || config.Cols > MaxGridSize {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Cols)
	}
	if config.Mines < 0 {
		return fmt.Errorf("config validation: mines must be >= 0, got %d", config.Mines)
	}
	if config.MaxDecoy < MinDecoy || config.MaxDecoy > MaxDecoy {
		return fmt.Errorf("config validation: max_decoy must be between %d and %d, got %d", MinDecoy, MaxDecoy, config.MaxDecoy)
	}

	switch config.EffectiveRuleset() {
	case RulesetGoal:
		if !config.Goal {
			return errors.New("config validation: goal ruleset requires goal: true")
		}
		if config.RequiredItems < 0 || config.RequiredItems > config.TotalItems() {
			return fmt.Errorf("config validation: required_items must be between 0 and %d placed items, got %d",
				config.TotalItems(), config.RequiredItems)
		}
	case RulesetClear:
	default:
		return fmt.Errorf("config validation: unknown ruleset %q", config.Ruleset)
	}

	for _, q := range config.Items {
		if q.Count < 0 {
			return fmt.Errorf("config validation: item %q has negative count %d", q.ID, q.Count)
		}
		if _, ok := registry.Items[q.ID]; !ok {
			return fmt.Errorf("config validation: %w: %q", ErrUnknownItem, q.ID)
		}
	}

	seen := make(map[string]bool, len(config.Events))
	for _, id := range config.Events {
		if id == "" {
			return errors.New("config validation: event ids must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("config validation: duplicate event id %q", id)
		}
		seen[id] = true
	}

	goals := 0
	if config.Goal {
		goals = 1
	}
	free := config.Rows*config.Cols - 1
	needed := config.Mines + config.TotalItems() + len(config.Events) + goals
	if needed > free {
		return fmt.Errorf("config validation: %w: %d cells of content but only %d free cells", ErrOverDensity, needed, free)
	}

	if err := ValidateSpawns(config.Spawns, config.Rows, config.Cols, registry); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	return nil
}

// LoadChapterConfig loads a chapter from a YAML file and validates it
func LoadChapterConfig(filename string, registry *Registry) (*ChapterConfig, error) {
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, err
	}

	config, err := ParseChapterConfig(data)
	if err != nil {
		return nil, err
	}

	if err := ValidateChapterConfig(config, registry); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseChapterConfig decodes a YAML (or JSON, which is valid YAML) chapter document
func ParseChapterConfig(data []byte) (*ChapterConfig, error) {
	var config ChapterConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse chapter config: %w", err)
	}
	return &config, nil
}

// DefaultChapters returns the built-in chapter table keyed by id
func DefaultChapters() map[string]*ChapterConfig {
	return map[string]*ChapterConfig{
		"chapter1": {
			ID:            "chapter1",
			Name:          "Chapter 1: Uncharted Land",
			Description:   "First steps on the frontier. Learn to read the ground.",
			Rows:          5,
			Cols:          5,
			Mines:         1,
			RequiredItems: 3,
			MaxDecoy:      3,
			Items:         []ItemQuota{{ID: "medkit", Count: 2}, {ID: "shield", Count: 1}},
			Events:        []string{"signal_a", "signal_b", "signal_c"},
			Goal:          true,
			Spawns: []HostileSpawn{
				{Kind: "scout", UID: "c1-e1", Route: []Coord{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 2}}},
				{Kind: "scout", UID: "c1-e2", Route: []Coord{{X: 1, Y: 1}, {X: 1, Y: 2}}},
			},
			Unlocks: "chapter2",
		},
		"chapter2": {
			ID:            "chapter2",
			Name:          "Chapter 2: Shadow of the Ruins",
			Description:   "The entrance to an ancient structure.",
			Rows:          12,
			Cols:          12,
			Mines:         18,
			RequiredItems: 5,
			MaxDecoy:      3,
			Items:         []ItemQuota{{ID: "medkit", Count: 3}, {ID: "shield", Count: 1}, {ID: "scanner", Count: 1}},
			Events:        []string{"signal_a", "signal_b", "signal_c", "signal_d", "signal_e"},
			Goal:          true,
			Spawns: []HostileSpawn{
				{Kind: "guard", UID: "c2-e1", Route: []Coord{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}}},
				{Kind: "scout", UID: "c2-e2", Route: []Coord{{X: 6, Y: 6}, {X: 6, Y: 7}, {X: 7, Y: 7}}},
			},
			Unlocks: "chapter3",
		},
		"chapter3": {
			ID:            "chapter3",
			Name:          "Chapter 3: Ruin Depths",
			Description:   "Deep inside, closer to the truth.",
			Rows:          16,
			Cols:          16,
			Mines:         28,
			RequiredItems: 7,
			MaxDecoy:      4,
			Items:         []ItemQuota{{ID: "medkit", Count: 4}, {ID: "shield", Count: 2}, {ID: "scanner", Count: 1}},
			Events:        []string{"signal_a", "signal_b", "signal_c", "signal_d", "signal_e", "signal_f", "signal_g"},
			Goal:          true,
			Unlocks:       "chapter4",
		},
		"chapter4": {
			ID:          "chapter4",
			Name:        "Chapter 4: Control Core",
			Description: "The heart of this world. Sweep it clean.",
			Rows:        16,
			Cols:        16,
			Mines:       28,
			MaxDecoy:    4,
			Ruleset:     RulesetClear,
		},
	}
}
