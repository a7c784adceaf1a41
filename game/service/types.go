package service

import (
	"time"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
	"github.com/misoria/frontier/game/progress"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string                `json:"id"`
	ChapterID      string                `json:"chapter_id"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	GameState      *engine.GameState     `json:"game_state"`
	Chapter        *engine.ChapterConfig `json:"chapter"`
	Log            []narrative.Entry     `json:"log,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool              `json:"success"`
	GameState     *engine.GameState `json:"game_state"`
	Turn          engine.TurnResult `json:"turn"`
	Message       string            `json:"message"`
	Log           []narrative.Entry `json:"log,omitempty"`
	Events        []GameEvent       `json:"events,omitempty"`
	PossibleMoves []string          `json:"possible_moves,omitempty"`
	LocalView3x3  []string          `json:"local_view_3x3,omitempty"`
	Threat        string            `json:"threat,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	Log            []narrative.Entry `json:"log,omitempty"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // Machine-friendly code: blocked_boundary|caught|mine|victory|game_over|invalid_direction
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos       engine.Coord `json:"start_pos"`
	EndPos         engine.Coord `json:"end_pos"`
	StartHP        int          `json:"start_hp"`
	EndHP          int          `json:"end_hp"`
	CollectedDelta int          `json:"collected_delta"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	GameOver      bool     `json:"game_over"`
	GameOverCode  string   `json:"game_over_code,omitempty"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
	LocalView3x3  []string `json:"local_view_3x3,omitempty"`
	Threat        string   `json:"threat,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx      int                `json:"idx"`
	Dir      string             `json:"dir"`
	From     engine.Coord       `json:"from"`
	To       engine.Coord       `json:"to"`
	Symbol   string             `json:"symbol"`
	HPBefore int                `json:"hp_before"`
	HPAfter  int                `json:"hp_after"`
	Success  bool               `json:"success"`
	Outcome  engine.OutcomeKind `json:"outcome,omitempty"`
	Hit      engine.HitKind     `json:"hit,omitempty"`
	ItemID   string             `json:"item_id,omitempty"`
	EventID  string             `json:"event_id,omitempty"`
	Victory  bool               `json:"victory,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string       `json:"type"` // "move", "pickup", "event", "hit", "crossed", "goal_locked", "game_over", "victory", "reset", "flag"
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Position  engine.Coord `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a chapter configuration
type ConfigInfo struct {
	Filename      string         `json:"filename"`
	ConfigID      string         `json:"config_id"` // The identifier to use for session creation
	Name          string         `json:"name"`      // Display name
	Description   string         `json:"description"`
	Rows          int            `json:"rows"`
	Cols          int            `json:"cols"`
	Mines         int            `json:"mines"`
	RequiredItems int            `json:"required_items"`
	MaxDecoy      int            `json:"max_decoy"`
	Ruleset       engine.Ruleset `json:"ruleset"`
	Unlocks       string         `json:"unlocks,omitempty"`
}

// ProgressInfo is the player's cross-session record
type ProgressInfo struct {
	Collected []string            `json:"collected"`
	Log       []progress.LogEntry `json:"log"`
	Unlocked  []string            `json:"unlocked"`
	Cleared   []string            `json:"cleared"`
	Gallery   []GalleryItem       `json:"gallery"`
}

// GalleryItem is one registry item with its collection state
type GalleryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Rarity    string `json:"rarity,omitempty"`
	Collected bool   `json:"collected"`
}
