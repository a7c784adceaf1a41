package engine

import (
	"fmt"
	"math/rand/v2"
)

// Orchestrator advances a chapter session one turn at a time. It holds only
// read-only tables; all session data flows through the GameState values it is given.
type Orchestrator struct {
	chapter  *ChapterConfig
	registry *Registry
}

// NewOrchestrator binds a chapter to the registry its spawns and items refer to
func NewOrchestrator(chapter *ChapterConfig, registry *Registry) *Orchestrator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Orchestrator{chapter: chapter, registry: registry}
}

// Chapter returns the chapter this orchestrator runs
func (o *Orchestrator) Chapter() *ChapterConfig {
	return o.chapter
}

// NewBoard generates a board for the chapter with the spawn kept clear
func (o *Orchestrator) NewBoard(rng *rand.Rand, exclude []string) (Board, error) {
	c := o.chapter
	return CreateBoard(c.Rows, c.Cols, c.Mines, GenerateOptions{
		Rand:         rng,
		Items:        c.Items,
		Events:       c.Events,
		Goal:         c.Goal,
		ExcludeItems: exclude,
	})
}

// NewGame generates a board and returns the initial session state on it
func (o *Orchestrator) NewGame(rng *rand.Rand, exclude []string) (GameState, error) {
	b, err := o.NewBoard(rng, exclude)
	if err != nil {
		return GameState{}, fmt.Errorf("failed to generate %s: %w", o.chapter.ID, err)
	}
	return NewGameState(o.chapter, o.registry, b)
}

// NewGameState places the player on the board's spawn with a full decoy stock, spawns
// the chapter's hostiles and resolves the spawn cell as if it had been stepped on.
func NewGameState(chapter *ChapterConfig, registry *Registry, b Board) (GameState, error) {
	o := NewOrchestrator(chapter, registry)

	hostiles, err := SpawnHostiles(chapter.Spawns, o.registry)
	if err != nil {
		return GameState{}, err
	}

	total := b.CountItems()
	required := chapter.RequiredItems
	if required > total {
		required = total
	}

	s := GameState{
		ChapterID: chapter.ID,
		Board:     b,
		Player: PlayerTurnState{
			Pos:    b.Spawn,
			HP:     chapter.MaxDecoy,
			MaxHP:  chapter.MaxDecoy,
			Status: StatusPlaying,
		},
		Hostiles:      hostiles,
		RequiredItems: required,
		TotalItems:    total,
		CollectionLog: []CollectionRecord{},
		Events:        []string{},
		MoveHistory:   []MoveHistoryEntry{},
		CurrentMoves:  []MoveHistoryEntry{},
	}

	var res TurnResult
	if err := o.enterCell(&s, b.Spawn, &res); err != nil {
		return GameState{}, err
	}
	o.checkCleared(&s, b, &res)
	return s, nil
}

// AdvanceTurn applies one player step of (dx, dy). The input state is never modified.
//
// Within a turn hostiles step first, then the collision is resolved, then the
// destination cell is revealed. Turns submitted after the session ended, or that the
// grid edge blocks, are no-ops that consume nothing.
func (o *Orchestrator) AdvanceTurn(s GameState, dx, dy int) (GameState, TurnResult, error) {
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return s, TurnResult{}, fmt.Errorf("%w: (%d,%d)", ErrInvalidDirection, dx, dy)
	}

	from := s.Player.Pos
	res := TurnResult{
		Turn:   s.Turn,
		From:   from,
		To:     from,
		Hit:    HitResult{Kind: HitNone, Index: -1},
		Status: s.Player.Status,
	}

	if s.Player.Status != StatusPlaying {
		res.NoOp = true
		res.NoOpReason = NoOpNotPlaying
		return s, res, nil
	}

	dest := s.Board.Clamp(from.X+dx, from.Y+dy)
	if dest == from {
		res.NoOp = true
		res.NoOpReason = NoOpBlocked
		return s, res, nil
	}

	next := s.Clone()
	next.Turn++
	res.Turn = next.Turn

	stepped := StepAll(s.Hostiles)
	hit := Resolve(from, dest, s.Hostiles, stepped)
	next.Hostiles = stepped
	res.Hit = hit

	switch hit.Kind {
	case HitDirect, HitCrossed:
		h := stepped[hit.Index]
		damage, err := o.registry.Attack(h.Kind)
		if err != nil {
			return s, TurnResult{}, err
		}
		res.HitUID = h.UID
		res.Damage = damage
		survived := applyDamage(&next.Player, damage, &res)

		if hit.Kind == HitDirect {
			next.Player.Pos = dest
			res.Moved = true
			if survived {
				if err := o.enterCell(&next, dest, &res); err != nil {
					return s, TurnResult{}, err
				}
			}
		}
	default:
		next.Player.Pos = dest
		res.Moved = true
		if err := o.enterCell(&next, dest, &res); err != nil {
			return s, TurnResult{}, err
		}
	}

	o.checkCleared(&next, s.Board, &res)

	res.To = next.Player.Pos
	res.Status = next.Player.Status
	return next, res, nil
}

// applyDamage spends decoys on an incoming hit and reports whether the player survived
func applyDamage(p *PlayerTurnState, damage int, res *TurnResult) bool {
	if p.HP >= damage {
		p.HP -= damage
		res.Notices = append(res.Notices, Notice{Kind: NoticeDecoyUsed})
		return true
	}
	p.HP = 0
	p.Status = StatusLost
	res.Notices = append(res.Notices, Notice{Kind: NoticeCaught})
	return false
}

// enterCell reveals c for the player standing on it and applies the bookkeeping of the outcome
func (o *Orchestrator) enterCell(s *GameState, c Coord, res *TurnResult) error {
	b := s.Board
	ruleset := o.chapter.EffectiveRuleset()

	if ruleset == RulesetClear {
		cell, err := b.At(c.X, c.Y)
		if err != nil {
			return err
		}
		if !cell.HasMine {
			if b, err = FloodReveal(b, c.X, c.Y); err != nil {
				return err
			}
		}
	}

	b, outcome, err := StepOnCell(b, c.X, c.Y)
	if err != nil {
		return err
	}
	s.Board = b
	res.Outcome = &outcome

	switch outcome.Kind {
	case OutcomeMine:
		s.Player.Status = StatusLost
	case OutcomeGoal:
		if ruleset != RulesetGoal {
			break
		}
		if s.Player.Collected >= s.RequiredItems {
			s.Player.Status = StatusWon
			res.Notices = append(res.Notices, Notice{Kind: NoticeGoalReached})
		} else {
			res.Notices = append(res.Notices, Notice{
				Kind:      NoticeInsufficientCollection,
				Remaining: s.RequiredItems - s.Player.Collected,
			})
		}
	case OutcomeEvent:
		s.Events = append(s.Events, outcome.EventID)
	case OutcomePickup:
		s.Player.Collected++
		s.CollectionLog = append(s.CollectionLog, CollectionRecord{ItemID: outcome.ItemID, Turn: s.Turn})
		if s.RequiredItems > 0 && s.Player.Collected == s.RequiredItems {
			res.Notices = append(res.Notices, Notice{Kind: NoticeCollectionComplete})
		}
	}
	return nil
}

// checkCleared evaluates the open-every-safe-cell condition. It decides the session
// only under the clear ruleset; otherwise it is reported once, when it first holds.
func (o *Orchestrator) checkCleared(s *GameState, before Board, res *TurnResult) {
	if s.Player.Status != StatusPlaying || !CheckWin(s.Board) {
		return
	}
	if o.chapter.EffectiveRuleset() == RulesetClear {
		s.Player.Status = StatusWon
		res.Notices = append(res.Notices, Notice{Kind: NoticeAreaCleared})
		return
	}
	if !CheckWin(before) {
		res.Notices = append(res.Notices, Notice{Kind: NoticeAreaCleared})
	}
}
