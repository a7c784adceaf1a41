package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/validate"
)

func writeChapter(t *testing.T, dir string, cfg *engine.ChapterConfig) {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Failed to marshal chapter: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cfg.ID+".yaml"), data, 0644); err != nil {
		t.Fatalf("Failed to write chapter: %v", err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range engine.DefaultChapters() {
		writeChapter(t, dir, cfg)
	}

	var out bytes.Buffer
	if err := run(&out, dir); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"=== Analyzing chapter1.yaml ===",
		"Grid Size: 5 x 5",
		"Mines: 1 (4.0%)",
		"Items: 3 placed, 3 required",
		"Hostiles: 2 covering 6 cells (24.0%)",
		"Nearest patrol to spawn: 1",
		"=== Analyzing chapter4.yaml ===",
		"Ruleset: clear",
		"✅ No hostile patrols",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestRun_MissingDir(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for a missing directory")
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		result validate.Result
		want   []string
	}{
		{
			name:   "invalid chapter",
			result: validate.Result{File: "bad.yaml", Errors: []string{"boom"}},
			want:   []string{"❌ boom"},
		},
		{
			name: "crowded chapter",
			result: validate.Result{
				File:    "crowded.yaml",
				Valid:   true,
				Chapter: &engine.ChapterConfig{ID: "crowded", Name: "Crowded", Rows: 5, Cols: 5, Mines: 14, MaxDecoy: 1},
			},
			want: []string{"WARNING: more than 50% of free cells", "✅ No balance warnings"},
		},
		{
			name: "warnings listed",
			result: validate.Result{
				File:     "warn.yaml",
				Valid:    true,
				Chapter:  &engine.ChapterConfig{ID: "warn", Name: "Warn", Rows: 5, Cols: 5, Mines: 2, MaxDecoy: 1},
				Warnings: []string{"hostile h1 jumps between waypoints 0 and 1"},
			},
			want: []string{"⚠️  hostile h1 jumps"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			analyze(&out, tt.result)
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
				}
			}
		})
	}
}
