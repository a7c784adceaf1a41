// Package progress keeps the player's cross-session record: which items were
// ever collected, when and where each was found, and which chapters are open.
//
// The store is a single YAML document. An empty path keeps it in memory only.
package progress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
	"gopkg.in/yaml.v3"

	"github.com/misoria/frontier/game/engine"
)

// ErrChapterLocked is returned when a chapter is requested before it was unlocked
var ErrChapterLocked = errors.New("chapter is locked")

// LogEntry is one collection event in the gallery log
type LogEntry struct {
	ID          string    `json:"id" yaml:"id"`
	ItemID      string    `json:"item_id" yaml:"item_id"`
	ChapterID   string    `json:"chapter_id" yaml:"chapter_id"`
	CollectedAt time.Time `json:"collected_at" yaml:"collected_at"`
}

// Snapshot is the serialisable form of the store
type Snapshot struct {
	Collected []string   `json:"collected" yaml:"collected"`
	Log       []LogEntry `json:"log" yaml:"log"`
	Unlocked  []string   `json:"unlocked" yaml:"unlocked"`
	Cleared   []string   `json:"cleared" yaml:"cleared"`
}

// Store is safe for concurrent use
type Store struct {
	path     string
	mu       sync.RWMutex
	ever     mapset.Set[string]
	unlocked mapset.Set[string]
	cleared  mapset.Set[string]
	log      []LogEntry
	now      func() time.Time
}

// NewStore opens the store at path, creating it on first save. Chapters in
// initial are always unlocked.
func NewStore(path string, initial ...string) (*Store, error) {
	s := &Store{
		path:     path,
		ever:     mapset.New[string](),
		unlocked: mapset.New[string](),
		cleared:  mapset.New[string](),
		now:      time.Now,
	}
	for _, id := range initial {
		s.unlocked.Put(id)
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}
	for _, id := range snap.Collected {
		s.ever.Put(id)
	}
	for _, id := range snap.Unlocked {
		s.unlocked.Put(id)
	}
	for _, id := range snap.Cleared {
		s.cleared.Put(id)
	}
	s.log = snap.Log

	logrus.WithFields(logrus.Fields{
		"path":      path,
		"collected": s.ever.Size(),
		"unlocked":  s.unlocked.Size(),
	}).Debug("Loaded progress")
	return s, nil
}

// RecordCollection adds the chapter's pickups to the gallery and persists it
func (s *Store) RecordCollection(chapterID string, records []engine.CollectionRecord) ([]LogEntry, error) {
	if len(records) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]LogEntry, 0, len(records))
	for _, r := range records {
		e := LogEntry{
			ID:          uuid.NewString(),
			ItemID:      r.ItemID,
			ChapterID:   chapterID,
			CollectedAt: s.now().UTC(),
		}
		s.log = append(s.log, e)
		s.ever.Put(r.ItemID)
		added = append(added, e)
	}
	return added, s.saveLocked()
}

// MarkCleared records a won chapter and unlocks the one it leads to
func (s *Store) MarkCleared(chapterID, unlocks string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleared.Put(chapterID)
	s.unlocked.Put(chapterID)
	if unlocks != "" && !s.unlocked.Has(unlocks) {
		s.unlocked.Put(unlocks)
		logrus.WithFields(logrus.Fields{
			"cleared":  chapterID,
			"unlocked": unlocks,
		}).Info("Chapter unlocked")
	}
	return s.saveLocked()
}

// CheckUnlocked returns ErrChapterLocked unless chapterID is open
func (s *Store) CheckUnlocked(chapterID string) error {
	if !s.IsUnlocked(chapterID) {
		return fmt.Errorf("%w: %s", ErrChapterLocked, chapterID)
	}
	return nil
}

// IsUnlocked reports whether chapterID can be played
func (s *Store) IsUnlocked(chapterID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked.Has(chapterID)
}

// HasCollected reports whether the item was ever picked up
func (s *Store) HasCollected(itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ever.Has(itemID)
}

// Collected returns every item id ever picked up, sorted
func (s *Store) Collected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.ever)
}

// Log returns the collection log oldest first
func (s *Store) Log() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LogEntry(nil), s.log...)
}

// Snapshot returns a copy of the whole record
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Collected: sortedKeys(s.ever),
		Log:       append([]LogEntry{}, s.log...),
		Unlocked:  sortedKeys(s.unlocked),
		Cleared:   sortedKeys(s.cleared),
	}
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create progress directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	return nil
}

func sortedKeys(set mapset.Set[string]) []string {
	out := make([]string, 0, set.Size())
	set.Each(func(k string) { out = append(out, k) })
	sort.Strings(out)
	return out
}
