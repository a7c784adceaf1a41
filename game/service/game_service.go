package service

import (
	"context"
	"sync"
	"time"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
	"github.com/misoria/frontier/game/progress"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, chapterID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	ToggleFlag(ctx context.Context, sessionID string, x, y int) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, chapterID string) (*engine.ChapterConfig, error)
	SaveConfig(ctx context.Context, chapterID string, config *engine.ChapterConfig) error

	// Progress
	GetProgress(ctx context.Context) (*ProgressInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.ChapterConfig, opts ...engine.Option) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.ChapterConfig, opts ...engine.Option) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles chapter configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ChapterConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.ChapterConfig
	SaveConfig(name string, config *engine.ChapterConfig) error
	Registry() *engine.Registry
}

// ProgressStore records collections and chapter unlocks across sessions
type ProgressStore interface {
	RecordCollection(chapterID string, records []engine.CollectionRecord) ([]progress.LogEntry, error)
	MarkCleared(chapterID, unlocks string) error
	CheckUnlocked(chapterID string) error
	Collected() []string
	Snapshot() progress.Snapshot
}

// Session represents an active game session. Mu serialises turns so one input
// produces one complete transition before the next is accepted.
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.ChapterConfig
	Log            []narrative.Entry
	CreatedAt      time.Time
	LastAccessedAt time.Time

	Mu sync.Mutex
}
