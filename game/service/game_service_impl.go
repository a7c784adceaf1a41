package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
)

// MaxLogEntries bounds the narrative log kept per session
const MaxLogEntries = 200

// Option configures the game service
type Option func(*gameServiceImpl)

// WithProgress records collections and chapter clears in the given store
func WithProgress(store ProgressStore) Option {
	return func(s *gameServiceImpl) { s.progress = store }
}

// WithNarrator replaces the built-in narration script
func WithNarrator(n narrative.Narrator) Option {
	return func(s *gameServiceImpl) { s.narrator = n }
}

// WithUnlockEnforcement refuses sessions for chapters the player has not unlocked yet
func WithUnlockEnforcement(enabled bool) Option {
	return func(s *gameServiceImpl) { s.enforceUnlocks = enabled }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions       SessionManager
	configs        ConfigManager
	progress       ProgressStore
	narrator       narrative.Narrator
	enforceUnlocks bool
	mu             sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.narrator == nil {
		s.narrator = narrative.NewDefaultScript(configs.Registry())
	}
	return s
}

// CreateSession creates a new game session for a chapter
func (s *gameServiceImpl) CreateSession(ctx context.Context, chapterID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var chapter *engine.ChapterConfig
	var err error
	if chapterID != "" {
		chapter, err = s.configs.LoadConfig(chapterID)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found, available configs %v: %w", chapterID, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found, use /api/configs to list available configurations: %w", chapterID, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", chapterID, err)
		}
	} else {
		chapter = s.configs.GetDefault()
	}

	if s.enforceUnlocks && s.progress != nil {
		if err := s.progress.CheckUnlocked(chapter.ID); err != nil {
			return nil, fmt.Errorf("cannot start %s: %w", chapter.ID, err)
		}
	}

	opts := []engine.Option{engine.WithRegistry(s.configs.Registry())}
	if excluded := s.excludedItems(chapter); len(excluded) > 0 {
		opts = append(opts, engine.WithExcludedItems(excluded))
	}

	// Let session manager generate the ID
	sess, err := s.sessions.Create("", chapter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Mu.Lock()
	sess.Log = appendLog(sess.Log, s.narrator.Opening(chapter.ID, false))
	sess.Mu.Unlock()

	s.save(sess.ID, "create")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Move executes a single turn for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	events := []GameEvent{}
	var entries []narrative.Entry

	// Handle reset if requested
	if reset {
		resetEntries, err := s.resetLocked(sess)
		if err != nil {
			sess.Mu.Unlock()
			return nil, err
		}
		entries = append(entries, resetEntries...)
		events = append(events, resetEvent())
	}

	before := len(sess.Engine.GetState().CollectionLog)
	turn, err := sess.Engine.Move(direction)
	if err != nil {
		sess.Mu.Unlock()
		return nil, err
	}

	state := sess.Engine.GetState()
	turnEntries := s.narrator.Narrate(sess.Config.ID, turn)
	entries = append(entries, turnEntries...)
	sess.Log = appendLog(sess.Log, entries)
	state.Message = summarize(turnEntries, turn.Status)
	s.recordProgress(sess, before, turn)

	snapshot := state.Clone()
	result := &MoveResult{
		Success:       !turn.NoOp,
		GameState:     &snapshot,
		Turn:          turn,
		Message:       snapshot.Message,
		Log:           entries,
		Events:        append(events, turnEvents(direction, turn, state)...),
		PossibleMoves: sess.Engine.GetPossibleMoves(),
		LocalView3x3:  buildLocal3x3(&snapshot),
		Threat:        riskCode(engine.AnalyzeThreat(&snapshot, sess.Engine.GetRegistry())),
	}
	sess.Mu.Unlock()

	s.save(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple turns in sequence and stops at the first one that ends the
// session, runs into the map edge or names an unknown direction
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	defer func() {
		sess.Mu.Unlock()
		s.save(sessionID, "bulk move")
	}()

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	// Handle reset
	if reset {
		entries, err := s.resetLocked(sess)
		if err != nil {
			return nil, err
		}
		result.Log = append(result.Log, entries...)
		result.Events = append(result.Events, resetEvent())
	}

	start := sess.Engine.GetState()
	result.StartPos = start.Player.Pos
	result.StartHP = start.Player.HP
	startCollected := start.Player.Collected

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "game already over"
			result.StopReasonCode = "game_over"
			result.StoppedOnMove = i + 1
			break
		}

		hpBefore := sess.Engine.GetHP()
		before := len(sess.Engine.GetState().CollectionLog)
		turn, err := sess.Engine.Move(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d rejected: %v", i+1, err)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		state := sess.Engine.GetState()
		entries := s.narrator.Narrate(sess.Config.ID, turn)
		result.Log = append(result.Log, entries...)
		state.Message = summarize(entries, turn.Status)
		s.recordProgress(sess, before, turn)

		if turn.NoOp {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, move)
			result.StopReasonCode = "blocked_boundary"
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		result.Events = append(result.Events, turnEvents(move, turn, state)...)
		result.Steps = append(result.Steps, stepInfo(i+1, move, turn, state, hpBefore))

		if code := stopCode(turn); code != "" {
			result.StopReasonCode = code
			result.GameOverCode = code
			result.StoppedReason = narrative.StatusLine(turn.Status)
			result.StoppedOnMove = i + 1
			break
		}
	}

	sess.Log = appendLog(sess.Log, result.Log)

	end := sess.Engine.GetState().Clone()
	result.GameState = &end
	result.EndPos = end.Player.Pos
	result.EndHP = end.Player.HP
	result.CollectedDelta = end.Player.Collected - startCollected
	result.GameOver = end.IsGameOver()
	result.Message = end.Message
	if result.GameOver && result.GameOverCode == "" {
		result.GameOverCode = "game_over"
	}

	// Decision aids
	result.PossibleMoves = sess.Engine.GetPossibleMoves()
	result.LocalView3x3 = buildLocal3x3(&end)
	result.Threat = riskCode(engine.AnalyzeThreat(&end, sess.Engine.GetRegistry()))

	return result, nil
}

// Reset regenerates the board for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	entries, err := s.resetLocked(sess)
	if err != nil {
		sess.Mu.Unlock()
		return nil, err
	}
	sess.Log = appendLog(sess.Log, entries)
	snapshot := sess.Engine.GetState().Clone()
	sess.Mu.Unlock()

	s.save(sessionID, "reset")
	return &snapshot, nil
}

// ToggleFlag marks or unmarks an unopened cell
func (s *gameServiceImpl) ToggleFlag(ctx context.Context, sessionID string, x, y int) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	state := sess.Engine.GetState()
	before, err := state.Board.At(x, y)
	if err != nil {
		sess.Mu.Unlock()
		return nil, err
	}
	if err := sess.Engine.ToggleFlag(x, y); err != nil {
		sess.Mu.Unlock()
		return nil, err
	}
	after, _ := sess.Engine.GetState().Board.At(x, y)
	if after.IsFlagged != before.IsFlagged {
		sess.Log = appendLog(sess.Log, []narrative.Entry{narrative.FlagToggled(after.IsFlagged)})
	}
	snapshot := sess.Engine.GetState().Clone()
	sess.Mu.Unlock()

	s.save(sessionID, "flag")
	return &snapshot, nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	snapshot := sess.Engine.GetState().Clone()
	return &snapshot, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	sess.Mu.Lock()
	history := append([]engine.MoveHistoryEntry(nil), sess.Engine.GetMoveHistory()...)
	sess.Mu.Unlock()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available chapter configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific chapter configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, chapterID string) (*engine.ChapterConfig, error) {
	return s.configs.LoadConfig(chapterID)
}

// SaveConfig saves a chapter configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, chapterID string, config *engine.ChapterConfig) error {
	return s.configs.SaveConfig(chapterID, config)
}

// GetProgress returns the cross-session collection record and the item gallery
func (s *gameServiceImpl) GetProgress(ctx context.Context) (*ProgressInfo, error) {
	info := &ProgressInfo{
		Collected: []string{},
		Unlocked:  []string{},
		Cleared:   []string{},
	}
	if s.progress != nil {
		snap := s.progress.Snapshot()
		info.Collected = snap.Collected
		info.Log = snap.Log
		info.Unlocked = snap.Unlocked
		info.Cleared = snap.Cleared
	}

	have := make(map[string]bool, len(info.Collected))
	for _, id := range info.Collected {
		have[id] = true
	}

	registry := s.configs.Registry()
	ids := make([]string, 0, len(registry.Items))
	for id := range registry.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	info.Gallery = make([]GalleryItem, 0, len(ids))
	for _, id := range ids {
		def := registry.Items[id]
		info.Gallery = append(info.Gallery, GalleryItem{
			ID:        id,
			Name:      def.Name,
			Rarity:    def.Rarity,
			Collected: have[id],
		})
	}
	return info, nil
}

// touch looks a session up and refreshes its access time
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		logrus.WithError(err).WithField("session", sessionID).Debug("Failed to update last access")
	}
	return sess, nil
}

// save persists a session; failures are logged and never fail the request
func (s *gameServiceImpl) save(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session": sessionID,
			"op":      op,
		}).Warn("Failed to persist session")
	}
}

// resetLocked restarts the chapter; callers hold sess.Mu
func (s *gameServiceImpl) resetLocked(sess *Session) ([]narrative.Entry, error) {
	if excluded := s.excludedItems(sess.Config); excluded != nil {
		sess.Engine.SetExcludedItems(excluded)
	}
	if _, err := sess.Engine.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sess.ID, err)
	}
	return s.narrator.Opening(sess.Config.ID, true), nil
}

func (s *gameServiceImpl) excludedItems(chapter *engine.ChapterConfig) []string {
	if s.progress == nil || !chapter.AvoidCollected {
		return nil
	}
	return s.progress.Collected()
}

// recordProgress forwards new pickups and a fresh win to the progress store
func (s *gameServiceImpl) recordProgress(sess *Session, before int, turn engine.TurnResult) {
	if s.progress == nil || turn.NoOp {
		return
	}
	state := sess.Engine.GetState()
	if len(state.CollectionLog) > before {
		if _, err := s.progress.RecordCollection(sess.Config.ID, state.CollectionLog[before:]); err != nil {
			logrus.WithError(err).WithField("session", sess.ID).Warn("Failed to record collection")
		}
	}
	if turn.Status == engine.StatusWon {
		if err := s.progress.MarkCleared(sess.Config.ID, sess.Config.Unlocks); err != nil {
			logrus.WithError(err).WithField("session", sess.ID).Warn("Failed to record chapter clear")
		}
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	snapshot := sess.Engine.GetState().Clone()
	return &SessionInfo{
		ID:             sess.ID,
		ChapterID:      sess.Config.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      &snapshot,
		Chapter:        sess.Config,
		Log:            append([]narrative.Entry(nil), sess.Log...),
	}
}

// appendLog appends entries and keeps only the newest MaxLogEntries
func appendLog(log, entries []narrative.Entry) []narrative.Entry {
	log = append(log, entries...)
	if len(log) > MaxLogEntries {
		log = append([]narrative.Entry(nil), log[len(log)-MaxLogEntries:]...)
	}
	return log
}

// summarize picks the headline message for a turn
func summarize(entries []narrative.Entry, status engine.Status) string {
	if status != engine.StatusPlaying || len(entries) == 0 {
		return narrative.StatusLine(status)
	}
	return entries[len(entries)-1].Message
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Chapter reset with a fresh board",
		Timestamp: time.Now(),
	}
}

// turnEvents generates events from a turn
func turnEvents(direction string, turn engine.TurnResult, state *engine.GameState) []GameEvent {
	now := time.Now()
	if turn.NoOp {
		return []GameEvent{{
			Type:      "blocked",
			Message:   fmt.Sprintf("Cannot move %s from (%d,%d)", direction, turn.From.X, turn.From.Y),
			Timestamp: now,
			Position:  turn.From,
		}}
	}

	var events []GameEvent
	if turn.Moved {
		events = append(events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("Moved %s to (%d,%d)", direction, turn.To.X, turn.To.Y),
			Timestamp: now,
			Position:  turn.To,
		})
	}

	switch turn.Hit.Kind {
	case engine.HitDirect:
		events = append(events, GameEvent{
			Type:      "hit",
			Message:   fmt.Sprintf("Hostile %s made contact for %d damage", turn.HitUID, turn.Damage),
			Timestamp: now,
			Position:  turn.To,
		})
	case engine.HitCrossed:
		events = append(events, GameEvent{
			Type:      "crossed",
			Message:   fmt.Sprintf("Crossed paths with hostile %s for %d damage", turn.HitUID, turn.Damage),
			Timestamp: now,
			Position:  turn.To,
		})
	}

	if turn.Outcome != nil {
		switch turn.Outcome.Kind {
		case engine.OutcomePickup:
			events = append(events, GameEvent{
				Type:      "pickup",
				Message:   fmt.Sprintf("Picked up %s (%d/%d)", turn.Outcome.ItemID, state.Player.Collected, state.RequiredItems),
				Timestamp: now,
				Position:  turn.To,
			})
		case engine.OutcomeEvent:
			events = append(events, GameEvent{
				Type:      "event",
				Message:   fmt.Sprintf("Triggered %s", turn.Outcome.EventID),
				Timestamp: now,
				Position:  turn.To,
			})
		case engine.OutcomeMine:
			events = append(events, GameEvent{
				Type:      "mine",
				Message:   "Stepped on a mine",
				Timestamp: now,
				Position:  turn.To,
			})
		}
	}

	for _, n := range turn.Notices {
		switch n.Kind {
		case engine.NoticeInsufficientCollection:
			events = append(events, GameEvent{
				Type:      "goal_locked",
				Message:   fmt.Sprintf("Goal locked: %d more items required", n.Remaining),
				Timestamp: now,
				Position:  turn.To,
			})
		case engine.NoticeCollectionComplete:
			events = append(events, GameEvent{
				Type:      "collection_complete",
				Message:   "All required items collected",
				Timestamp: now,
			})
		}
	}

	switch turn.Status {
	case engine.StatusWon:
		events = append(events, GameEvent{Type: "victory", Message: narrative.StatusLine(turn.Status), Timestamp: now})
	case engine.StatusLost:
		events = append(events, GameEvent{Type: "game_over", Message: narrative.StatusLine(turn.Status), Timestamp: now})
	}

	return events
}

func stepInfo(idx int, dir string, turn engine.TurnResult, state *engine.GameState, hpBefore int) StepInfo {
	step := StepInfo{
		Idx:      idx,
		Dir:      dir,
		From:     turn.From,
		To:       turn.To,
		Symbol:   cellSymbol(state.Board, turn.To),
		HPBefore: hpBefore,
		HPAfter:  state.Player.HP,
		Success:  !turn.NoOp,
		Hit:      turn.Hit.Kind,
		Victory:  turn.Status == engine.StatusWon,
	}
	if turn.Outcome != nil {
		step.Outcome = turn.Outcome.Kind
		step.ItemID = turn.Outcome.ItemID
		step.EventID = turn.Outcome.EventID
	}
	return step
}

// stopCode names the reason a turn ended the session, or "" while still playing
func stopCode(turn engine.TurnResult) string {
	switch turn.Status {
	case engine.StatusWon:
		return "victory"
	case engine.StatusLost:
		if turn.Outcome != nil && turn.Outcome.Kind == engine.OutcomeMine {
			return "mine"
		}
		return "caught"
	}
	return ""
}

// cellSymbol is the content symbol of a board cell, ignoring the player and hostiles
func cellSymbol(b engine.Board, c engine.Coord) string {
	cell, err := b.At(c.X, c.Y)
	if err != nil {
		return engine.SymbolWall
	}
	switch {
	case cell.HasMine:
		return engine.SymbolMine
	case cell.IsGoal:
		return engine.SymbolGoal
	case cell.EventID != "":
		return engine.SymbolEvent
	case cell.ItemID != "":
		return engine.SymbolItem
	case cell.NeighborMines > 0:
		return strconv.Itoa(cell.NeighborMines)
	default:
		return engine.SymbolEmpty
	}
}

func buildLocal3x3(state *engine.GameState) []string {
	if state == nil {
		return nil
	}
	px, py := state.Player.Pos.X, state.Player.Pos.Y
	lines := make([]string, 0, 3)
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			row.WriteString(state.VisibleSymbol(px+dx, py+dy))
		}
		lines = append(lines, row.String())
	}
	return lines
}

func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "low"):
		return "LOW"
	case strings.Contains(t, "warning"):
		return "WARNING"
	case strings.Contains(t, "safe"):
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}
