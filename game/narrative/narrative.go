// Package narrative turns turn outcomes into the operator's comms-log entries.
//
// The engine never produces text. Callers pass each TurnResult through a
// Narrator and append the returned entries to whatever log they display.
package narrative

import (
	"fmt"

	"github.com/misoria/frontier/game/engine"
)

// EntryType distinguishes plain dialogue from highlighted event cards
type EntryType string

const (
	EntryText  EntryType = "text"
	EntryEvent EntryType = "event"
)

// Entry is one line of the comms log
type Entry struct {
	Type    EntryType `json:"type"`
	Title   string    `json:"title,omitempty"`
	Image   string    `json:"image,omitempty"`
	Message string    `json:"message"`
}

// Narrator maps a turn of a chapter to log entries
type Narrator interface {
	Narrate(chapterID string, r engine.TurnResult) []Entry
	Opening(chapterID string, reset bool) []Entry
}

func text(msg string) Entry {
	return Entry{Type: EntryText, Message: msg}
}

func event(title, image, msg string) Entry {
	return Entry{Type: EntryEvent, Title: title, Image: image, Message: msg}
}

// DefaultScript is the built-in operator dialogue
type DefaultScript struct {
	registry *engine.Registry
}

// NewDefaultScript creates the built-in narrator. Item lines fall back to the
// registry's short description for items the script has no card for.
func NewDefaultScript(registry *engine.Registry) *DefaultScript {
	if registry == nil {
		registry = engine.DefaultRegistry()
	}
	return &DefaultScript{registry: registry}
}

var _ Narrator = (*DefaultScript)(nil)

// Opening returns the lines shown when a session starts or is reset
func (d *DefaultScript) Opening(chapterID string, reset bool) []Entry {
	if reset {
		return []Entry{text("\"Reconnecting comms... there. Let's try that again!\"")}
	}
	return []Entry{
		text("\"Testing, testing... can you hear me?\""),
		text("\"Great! Let's get to work.\""),
	}
}

// Narrate returns the lines for one turn in the order they should be shown
func (d *DefaultScript) Narrate(chapterID string, r engine.TurnResult) []Entry {
	if r.NoOp {
		if r.NoOpReason == engine.NoOpBlocked {
			return []Entry{text("\"That way's the edge of the map.\"")}
		}
		return nil
	}

	var out []Entry

	switch r.Hit.Kind {
	case engine.HitDirect:
		out = append(out, event("CONTACT", "/images/events/contact.png",
			fmt.Sprintf("Hostile %s made contact! (-%d decoys)", r.HitUID, r.Damage)))
	case engine.HitCrossed:
		out = append(out, event("CROSSING", "/images/events/contact.png",
			fmt.Sprintf("Passed through hostile %s! (-%d decoys)", r.HitUID, r.Damage)))
		out = append(out, text("\"It slipped right past us... we're holding position.\""))
	}

	if r.Outcome != nil {
		out = append(out, d.forOutcome(*r.Outcome)...)
	}

	for _, n := range r.Notices {
		out = append(out, d.forNotice(n)...)
	}

	return out
}

func (d *DefaultScript) forOutcome(o engine.Outcome) []Entry {
	switch o.Kind {
	case engine.OutcomeMine:
		return []Entry{
			event("WARNING", "/images/events/mine.png", "Stepped on a mine!"),
			text("\"...! That was one, wasn't it...!\""),
		}
	case engine.OutcomePickup:
		return d.forItem(o.ItemID)
	case engine.OutcomeEvent:
		return []Entry{
			event("SIGNAL", "/images/events/signal.png", fmt.Sprintf("Recovered transmission %s.", o.EventID)),
			text("\"A signal fragment... I'll log it.\""),
		}
	case engine.OutcomeSafe:
		return forSafe(o.NeighborMines)
	case engine.OutcomeGoal:
		return nil
	default:
		return []Entry{text("\"...(static on the line)\"")}
	}
}

func (d *DefaultScript) forItem(id string) []Entry {
	switch id {
	case "medkit":
		return []Entry{
			event("RECOVER", "/images/events/heal.png", "Found a recovery point!"),
			text("\"Lifesaver! We can patch up with this.\""),
		}
	case "shield":
		return []Entry{
			event("SHIELD", "/images/events/shield.png", "Barrier field deployed!"),
			text("\"That should hold for one hit!\""),
		}
	case "scanner":
		return []Entry{
			event("SCAN", "/images/events/reveal.png", "Area scan available!"),
			text("\"We can sweep for hostiles now. Handy!\""),
		}
	}

	if def, ok := d.registry.Items[id]; ok {
		return []Entry{event("ITEM", "", def.Name), text(def.Short)}
	}
	return []Entry{event("ITEM", "", fmt.Sprintf("Recovered %s.", id))}
}

func forSafe(n int) []Entry {
	if n > 0 {
		return []Entry{text(fmt.Sprintf("\"Readings... %d dangerous spots around here.\"", n))}
	}
	return []Entry{text("\"Quiet here... looks fine.\"")}
}

func (d *DefaultScript) forNotice(n engine.Notice) []Entry {
	switch n.Kind {
	case engine.NoticeCollectionComplete:
		return []Entry{text("\"That's all the data we need...! Head for the goal!\"")}
	case engine.NoticeInsufficientCollection:
		return []Entry{text(fmt.Sprintf("\"Still more to recover... %d left!\"", n.Remaining))}
	case engine.NoticeGoalReached:
		return []Entry{text("\"Goal reached!\"")}
	case engine.NoticeAreaCleared:
		return []Entry{text("\"We did it! This sector is secured!\"")}
	case engine.NoticeDecoyUsed:
		return []Entry{text("\"The decoy took it. We're still in this.\"")}
	case engine.NoticeCaught:
		return []Entry{text("\"We've been caught...!\"")}
	}
	return nil
}

// FlagToggled is the line for marking or unmarking a suspicious cell
func FlagToggled(flagged bool) Entry {
	if flagged {
		return text("\"Looks dangerous. I'll mark it so we stay clear.\"")
	}
	return text("\"Oops, sorry. Taking that mark off for now.\"")
}

// StatusLine summarises the session status for headers
func StatusLine(s engine.Status) string {
	switch s {
	case engine.StatusWon:
		return "Sector secured!"
	case engine.StatusLost:
		return "Blown up... retreating."
	default:
		return "Exploring..."
	}
}
