package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/session"
	"github.com/misoria/frontier/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

// writeConfigDir writes the given default chapters into a temp config directory
func writeConfigDir(t *testing.T, ids ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, id := range ids {
		data, err := yaml.Marshal(engine.DefaultChapters()[id])
		if err != nil {
			t.Fatalf("Failed to marshal %s: %v", id, err)
		}
		if err := os.WriteFile(filepath.Join(dir, id+".yaml"), data, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", id, err)
		}
	}
	return dir
}

// runApp runs the command tree with args and captures its output
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"frontier"}, args...))
	return out.String(), err
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	if app.DefaultCommand != "server" {
		t.Errorf("Expected default command server, got %q", app.DefaultCommand)
	}

	want := map[string][]string{
		"server":    {"http"},
		"stdio-mcp": {"mcp-stdio", "mcp"},
		"play":      nil,
		"validate":  nil,
	}
	for _, c := range app.Commands {
		aliases, ok := want[c.Name]
		if !ok {
			t.Errorf("Unexpected command %q", c.Name)
			continue
		}
		if strings.Join(c.Aliases, ",") != strings.Join(aliases, ",") {
			t.Errorf("Command %s: expected aliases %v, got %v", c.Name, aliases, c.Aliases)
		}
		delete(want, c.Name)
	}
	for name := range want {
		t.Errorf("Missing command %q", name)
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		wantErr bool
		wantOut string
	}{
		{
			name:    "full chain",
			ids:     []string{"chapter1", "chapter2", "chapter3", "chapter4"},
			wantOut: "All chapters are valid",
		},
		{
			name:    "dangling unlock",
			ids:     []string{"chapter1"},
			wantErr: true,
			wantOut: "unlocks unknown chapter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfigDir(t, tt.ids...)

			out, err := runApp(t, "--config-dir", dir, "validate")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestValidateCommand_MissingDir(t *testing.T) {
	if _, err := runApp(t, "--config-dir", filepath.Join(t.TempDir(), "missing"), "validate"); err == nil {
		t.Error("Expected error for a missing config directory")
	}
}

func TestInitializeServices(t *testing.T) {
	dir := writeConfigDir(t, "chapter1", "chapter2")
	work := t.TempDir()

	var svcs *services
	cmd := newApp()
	for _, c := range cmd.Commands {
		if c.Name == "validate" {
			c.Action = func(ctx context.Context, cmd *cli.Command) error {
				var err error
				svcs, err = initializeServices(cmd)
				return err
			}
		}
	}

	args := []string{"frontier",
		"--config-dir", dir,
		"--sessions-dir", filepath.Join(work, "sessions"),
		"--progress-file", filepath.Join(work, "progress.yaml"),
		"validate",
	}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if svcs == nil || svcs.game == nil || svcs.sessions == nil {
		t.Fatal("Expected services to be initialized")
	}

	info, err := svcs.game.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ChapterID != "chapter1" {
		t.Errorf("Expected default chapter1, got %s", info.ChapterID)
	}
	if _, err := os.Stat(filepath.Join(work, "sessions", strings.ToLower(info.ID)+".json")); err != nil {
		t.Errorf("Expected persisted session file: %v", err)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	var initErr error
	cmd := newApp()
	for _, c := range cmd.Commands {
		if c.Name == "validate" {
			c.Action = func(ctx context.Context, cmd *cli.Command) error {
				_, initErr = initializeServices(cmd)
				return nil
			}
		}
	}

	if err := cmd.Run(context.Background(), []string{"frontier", "--config-dir", "/non/existent/path", "validate"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if initErr == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestPruneOrphanedSessions(t *testing.T) {
	dir := writeConfigDir(t, "chapter1")
	work := t.TempDir()

	cmd := newApp()
	var svcs *services
	for _, c := range cmd.Commands {
		if c.Name == "validate" {
			c.Action = func(ctx context.Context, cmd *cli.Command) error {
				var err error
				svcs, err = initializeServices(cmd)
				return err
			}
		}
	}
	sessionsDir := filepath.Join(work, "sessions")
	args := []string{"frontier", "--config-dir", dir, "--sessions-dir", sessionsDir,
		"--progress-file", filepath.Join(work, "progress.yaml"), "validate"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	keep, err := svcs.game.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	gone, err := svcs.game.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := os.Remove(filepath.Join(sessionsDir, strings.ToLower(gone.ID)+".json")); err != nil {
		t.Fatalf("Failed to remove session file: %v", err)
	}

	if n := pruneOrphanedSessions(svcs.sessions, svcs.persistence); n != 1 {
		t.Errorf("Expected 1 pruned session, got %d", n)
	}
	if _, err := svcs.sessions.Get(keep.ID); err != nil {
		t.Errorf("Expected %s to survive: %v", keep.ID, err)
	}
	if _, err := svcs.sessions.Get(gone.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected %s to be pruned, got %v", gone.ID, err)
	}

	if n := pruneOrphanedSessions(svcs.sessions, nil); n != 0 {
		t.Errorf("Expected no pruning without persistence, got %d", n)
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:0").GetMCPServer())

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("initialize", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if !strings.Contains(w.Body.String(), `"Frontier"`) {
			t.Errorf("Expected server info in response, got %s", w.Body.String())
		}
	})
}

func TestAPIAvailable(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	down.Close()

	if !apiAvailable(up.URL) {
		t.Error("Expected healthy server to be available")
	}
	if apiAvailable(down.URL) {
		t.Error("Expected closed server to be unavailable")
	}
}
