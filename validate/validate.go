// Package validate lints chapter files in a config directory. Beyond the
// engine's own validation it checks:
//   - the file name matches the chapter id
//   - unlock chains point at chapters that exist
//   - mine density stays within a playable range
//   - patrol routes do not start inside the player's vision at spawn
//   - consecutive route waypoints are orthogonal neighbours
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/misoria/frontier/game/engine"
)

// Density bounds outside of which a chapter is flagged as unbalanced
const (
	MinMineDensity = 0.03
	MaxMineDensity = 0.25
)

// RegistryFile is skipped when scanning for chapters
const RegistryFile = "registry.yaml"

// Result captures the outcome of validating a single file. Errors make the
// chapter unusable; Warnings and Info are advisory.
type Result struct {
	File     string
	Chapter  *engine.ChapterConfig
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *Result) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) info(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Stats summarises the shape of a chapter
type Stats struct {
	Cells          int
	FreeCells      int
	Mines          int
	MineDensity    float64
	ContentCells   int
	Items          int
	RequiredItems  int
	Hostiles       int
	PatrolCells    int
	PatrolCoverage float64
	// NearestPatrol is the smallest Manhattan distance from spawn to any
	// waypoint, or -1 without hostiles
	NearestPatrol int
}

// Analyze computes Stats for a chapter that already passed engine validation
func Analyze(cfg *engine.ChapterConfig) Stats {
	cells := cfg.Rows * cfg.Cols
	goals := 0
	if cfg.Goal {
		goals = 1
	}
	s := Stats{
		Cells:         cells,
		FreeCells:     cells - 1,
		Mines:         cfg.Mines,
		ContentCells:  cfg.Mines + cfg.TotalItems() + len(cfg.Events) + goals,
		Items:         cfg.TotalItems(),
		RequiredItems: cfg.RequiredItems,
		Hostiles:      len(cfg.Spawns),
		NearestPatrol: -1,
	}
	if cells > 0 {
		s.MineDensity = float64(cfg.Mines) / float64(cells)
	}

	spawn := cfg.Spawn()
	covered := make(map[engine.Coord]bool)
	for _, h := range cfg.Spawns {
		for _, c := range h.Route {
			covered[c] = true
			if d := engine.ManhattanDistance(spawn, c); s.NearestPatrol < 0 || d < s.NearestPatrol {
				s.NearestPatrol = d
			}
		}
	}
	s.PatrolCells = len(covered)
	if cells > 0 {
		s.PatrolCoverage = float64(s.PatrolCells) / float64(cells)
	}
	return s
}

// File loads and validates a single chapter file against registry
func File(path string, registry *engine.Registry) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := engine.ParseChapterConfig(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.Chapter = cfg

	if err := engine.ValidateChapterConfig(cfg, registry); err != nil {
		result.fail("%v", err)
		return result
	}

	stem := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if stem != cfg.ID {
		result.warn("file name %q does not match chapter id %q", stem, cfg.ID)
	}

	stats := Analyze(cfg)
	result.info("✓ %dx%d grid, %d mines (%.0f%%)", cfg.Rows, cfg.Cols, cfg.Mines, stats.MineDensity*100)
	switch {
	case stats.MineDensity < MinMineDensity:
		result.warn("mine density %.1f%% is below %.0f%%", stats.MineDensity*100, MinMineDensity*100)
	case stats.MineDensity > MaxMineDensity:
		result.warn("mine density %.1f%% is above %.0f%%", stats.MineDensity*100, MaxMineDensity*100)
	}

	if cfg.EffectiveRuleset() == engine.RulesetGoal {
		result.info("✓ goal ruleset, %d of %d items required", cfg.RequiredItems, stats.Items)
	} else {
		result.info("✓ clear ruleset")
	}

	checkRoutes(&result, cfg)
	return result
}

func checkRoutes(result *Result, cfg *engine.ChapterConfig) {
	spawn := cfg.Spawn()
	for _, h := range cfg.Spawns {
		if d := engine.ManhattanDistance(spawn, h.Route[0]); d <= engine.VisionRange {
			result.warn("hostile %s starts %d step(s) from spawn", h.UID, d)
		}
		for i := 1; i < len(h.Route); i++ {
			if engine.ManhattanDistance(h.Route[i-1], h.Route[i]) != 1 {
				result.warn("hostile %s jumps between waypoints %d and %d", h.UID, i-1, i)
			}
		}
		if len(h.Route) > 1 && engine.ManhattanDistance(h.Route[len(h.Route)-1], h.Route[0]) > 1 {
			result.warn("hostile %s route does not loop back to its start", h.UID)
		}
	}
	if len(cfg.Spawns) > 0 {
		result.info("✓ %d hostile patrol(s)", len(cfg.Spawns))
	}
}

// Dir validates every chapter file in dir, using the directory's registry
// when present, and checks that unlock chains resolve
func Dir(dir string) ([]Result, error) {
	registry := engine.DefaultRegistry()
	if path := filepath.Join(dir, RegistryFile); fileExists(path) {
		loaded, err := engine.LoadRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		registry = loaded
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	ids := make(map[string]bool)
	for _, f := range files {
		if filepath.Base(f) == RegistryFile {
			continue
		}
		r := File(f, registry)
		if r.Chapter != nil {
			ids[r.Chapter.ID] = true
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no chapter files in %s", dir)
	}

	for i := range results {
		r := &results[i]
		if r.Valid && r.Chapter.Unlocks != "" && !ids[r.Chapter.Unlocks] {
			r.fail("unlocks unknown chapter %q", r.Chapter.Unlocks)
		}
	}
	return results, nil
}

// AllValid reports whether every result passed
func AllValid(results []Result) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
