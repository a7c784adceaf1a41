package engine

import "errors"

// Status is the governing mode of a chapter session
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"

	// Validation constants
	MinGridSize  = 5
	MaxGridSize  = 50
	MinDecoy     = 1
	MaxDecoy     = 9
	MaxBulkMoves = 50
)

var (
	ErrOutOfBounds       = errors.New("coordinate out of bounds")
	ErrOverDensity       = errors.New("placement exceeds available cells")
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	ErrEmptyRoute        = errors.New("hostile route is empty")
	ErrUnknownHostile    = errors.New("unknown hostile kind")
	ErrUnknownItem       = errors.New("unknown item")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidConfig     = errors.New("invalid chapter configuration")
)

// Coord is a grid position, x is the column and y the row
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Cell represents a single grid cell
type Cell struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	HasMine       bool   `json:"has_mine"`
	IsOpen        bool   `json:"is_open"`
	IsFlagged     bool   `json:"is_flagged"`
	NeighborMines int    `json:"neighbor_mines"`
	ItemID        string `json:"item_id,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	IsGoal        bool   `json:"is_goal,omitempty"`
}

// OutcomeKind classifies the result of stepping onto a cell
type OutcomeKind string

const (
	OutcomeMine   OutcomeKind = "mine"
	OutcomeGoal   OutcomeKind = "goal"
	OutcomeEvent  OutcomeKind = "event"
	OutcomePickup OutcomeKind = "pickup"
	OutcomeSafe   OutcomeKind = "safe"
)

// Outcome is what the reveal resolver reports for a single stepped cell
type Outcome struct {
	Kind          OutcomeKind `json:"kind"`
	ItemID        string      `json:"item_id,omitempty"`
	EventID       string      `json:"event_id,omitempty"`
	NeighborMines int         `json:"neighbor_mines"`
}

// HitKind classifies the spatial conflict between the player and a hostile in one turn
type HitKind string

const (
	HitNone    HitKind = "none"
	HitDirect  HitKind = "hit"
	HitCrossed HitKind = "crossed"
)

// HitResult names the conflict and the index of the responsible hostile (-1 for none)
type HitResult struct {
	Kind  HitKind `json:"kind"`
	Index int     `json:"index"`
}

// HostileState is one patrol unit cycling through a fixed route
type HostileState struct {
	UID   string  `json:"uid"`
	Kind  string  `json:"kind"`
	Route []Coord `json:"route"`
	Idx   int     `json:"idx"`
	HP    int     `json:"hp"`
}

// Position returns the waypoint the hostile currently occupies
func (h HostileState) Position() Coord {
	return h.Route[h.Idx]
}

// PlayerTurnState is the player's side of the session
type PlayerTurnState struct {
	Pos       Coord  `json:"pos"`
	HP        int    `json:"hp"`
	MaxHP     int    `json:"max_hp"`
	Collected int    `json:"collected"`
	Status    Status `json:"status"`
}

// CollectionRecord is one picked up item in the chapter's collection log
type CollectionRecord struct {
	ItemID string `json:"item_id"`
	Turn   int    `json:"turn"`
}

// NoticeKind names a soft, non-error signal produced by a turn
type NoticeKind string

const (
	NoticeInsufficientCollection NoticeKind = "insufficient_collection"
	NoticeCollectionComplete     NoticeKind = "collection_complete"
	NoticeGoalReached            NoticeKind = "goal_reached"
	NoticeAreaCleared            NoticeKind = "area_cleared"
	NoticeDecoyUsed              NoticeKind = "decoy_used"
	NoticeCaught                 NoticeKind = "caught"
)

// Notice carries a soft signal for the caller to narrate
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Remaining int        `json:"remaining,omitempty"`
}

// NoOpReason explains why a submitted turn did nothing
type NoOpReason string

const (
	NoOpNotPlaying NoOpReason = "not_playing"
	NoOpBlocked    NoOpReason = "blocked"
)

// TurnResult describes one atomic turn transition
type TurnResult struct {
	Turn       int        `json:"turn"`
	From       Coord      `json:"from"`
	To         Coord      `json:"to"`
	Moved      bool       `json:"moved"`
	NoOp       bool       `json:"no_op,omitempty"`
	NoOpReason NoOpReason `json:"no_op_reason,omitempty"`
	Hit        HitResult  `json:"hit"`
	HitUID     string     `json:"hit_uid,omitempty"`
	Damage     int        `json:"damage,omitempty"`
	Outcome    *Outcome   `json:"outcome,omitempty"`
	Notices    []Notice   `json:"notices,omitempty"`
	Status     Status     `json:"status"`
}

// HasNotice reports whether the turn emitted a notice of the given kind
func (r TurnResult) HasNotice(kind NoticeKind) bool {
	for _, n := range r.Notices {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// SurroundingCell represents a cell with its absolute position as seen by the player
type SurroundingCell struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Symbol string `json:"symbol"`
}

// GameState represents the complete state of one chapter session
type GameState struct {
	ChapterID     string             `json:"chapter_id"`
	Board         Board              `json:"board"`
	Player        PlayerTurnState    `json:"player"`
	Hostiles      []HostileState     `json:"hostiles"`
	RequiredItems int                `json:"required_items"`
	TotalItems    int                `json:"total_items"`
	CollectionLog []CollectionRecord `json:"collection_log"`
	Events        []string           `json:"events"`
	Turn          int                `json:"turn"`
	Message       string             `json:"message,omitempty"`
	MoveHistory   []MoveHistoryEntry `json:"move_history"`
	TotalMoves    int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// Clone returns a deep copy so snapshots handed to observers never alias live state
func (gs GameState) Clone() GameState {
	out := gs
	out.Board = gs.Board.Clone()
	out.Hostiles = cloneHostiles(gs.Hostiles)
	out.CollectionLog = append([]CollectionRecord(nil), gs.CollectionLog...)
	out.Events = append([]string(nil), gs.Events...)
	out.MoveHistory = append([]MoveHistoryEntry(nil), gs.MoveHistory...)
	out.CurrentMoves = append([]MoveHistoryEntry(nil), gs.CurrentMoves...)
	return out
}

// HostileAt returns the index of the first hostile standing on c, or -1
func (gs *GameState) HostileAt(c Coord) int {
	for i, h := range gs.Hostiles {
		if h.Position() == c {
			return i
		}
	}
	return -1
}

// IsGameOver reports whether the session reached a terminal status
func (gs *GameState) IsGameOver() bool {
	return gs.Player.Status != StatusPlaying
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action       string      `json:"action"`
	FromPosition Coord       `json:"from_position"`
	ToPosition   Coord       `json:"to_position"`
	HP           int         `json:"hp"`
	Outcome      OutcomeKind `json:"outcome,omitempty"`
	Hit          HitKind     `json:"hit,omitempty"`
	Timestamp    int64       `json:"timestamp"`
	Success      bool        `json:"success"`
	MoveNumber   int         `json:"move_number"`
}

func cloneHostiles(hs []HostileState) []HostileState {
	if hs == nil {
		return nil
	}
	out := make([]HostileState, len(hs))
	copy(out, hs)
	for i := range out {
		out[i].Route = append([]Coord(nil), hs[i].Route...)
	}
	return out
}
