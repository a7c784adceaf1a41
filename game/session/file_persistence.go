package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
	"github.com/misoria/frontier/game/service"
)

const sessionFileExt = ".json"

// FilePersistence stores one JSON document per session in a directory.
// File names are the lowercased session ID, so lookups are case-insensitive.
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
}

// NewFilePersistence prepares sessionsDir and returns a store that rebuilds
// engines from chapters known to configManager
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
	}, nil
}

// Save writes a snapshot of the session. The file is replaced atomically, so a
// crash mid-write leaves the previous snapshot intact.
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	payload, err := json.MarshalIndent(snapshot(sess), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	tmp, err := os.CreateTemp(fp.sessionsDir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage session %s: %w", sess.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmp.Name(), fp.path(sess.ID)); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", sess.ID, err)
	}
	return nil
}

// snapshot copies what a session needs to resume under its lock
func snapshot(sess *service.Session) PersistedSessionData {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	state := sess.Engine.GetState().Clone()
	return PersistedSessionData{
		ID:             sess.ID,
		ChapterID:      sess.Config.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      &state,
		Log:            append([]narrative.Entry(nil), sess.Log...),
	}
}

// Load rebuilds a session from its snapshot. The chapter is reloaded from the
// config manager and the saved state is checked by the engine before use.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	payload, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", id)
	}

	chapter, err := fp.configManager.LoadConfig(data.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("session %s: chapter %q: %w", id, data.ChapterID, err)
	}
	eng, err := engine.NewEngine(chapter, engine.WithRegistry(fp.configManager.Registry()))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := eng.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("session %s: restore state: %w", id, err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		Config:         chapter,
		Log:            data.Log,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes the session's snapshot
func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session %s: %w", id, err)
	}
	return nil
}

// ListAll returns the IDs of every stored snapshot
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, sessionFileExt))
	}
	return ids, nil
}

// Exists reports whether a snapshot is stored for id
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.path(id))
	return err == nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.sessionsDir, strings.ToLower(id)+sessionFileExt)
}
