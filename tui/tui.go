// Package tui is a terminal client that plays a chapter against a local engine.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
	"github.com/misoria/frontier/game/service"
)

// maxLog bounds the comms log kept on screen
const maxLog = 200

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Flag  key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Flag, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Flag, k.Reset, k.Quit}}
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "w", "k"), key.WithHelp("↑/w", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "s", "j"), key.WithHelp("↓/s", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "a", "h"), key.WithHelp("←/a", "left")),
	Right: key.NewBinding(key.WithKeys("right", "d", "l"), key.WithHelp("→/d", "right")),
	Flag:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flag next direction")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	symbolStyles = map[string]lipgloss.Style{
		engine.SymbolPlayer:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true),
		engine.SymbolHostile:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true),
		engine.SymbolUnopened: lipgloss.NewStyle().Foreground(lipgloss.Color("#585858")),
		engine.SymbolFlag:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8700")),
		engine.SymbolMine:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		engine.SymbolGoal:     lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		engine.SymbolItem:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		engine.SymbolEvent:    lipgloss.NewStyle().Foreground(lipgloss.Color("#D787FF")),
		engine.SymbolEmpty:    lipgloss.NewStyle().Foreground(lipgloss.Color("#BCBCBC")),
	}
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87D7FF"))
)

// Option configures the model
type Option func(*Model)

// WithProgress records pickups and chapter clears in the given store
func WithProgress(store service.ProgressStore) Option {
	return func(m *Model) { m.progress = store }
}

// WithNarrator replaces the built-in narration script
func WithNarrator(n narrative.Narrator) Option {
	return func(m *Model) { m.narrator = n }
}

// Model is the bubbletea model for one chapter session
type Model struct {
	engine   *engine.GameEngine
	narrator narrative.Narrator
	progress service.ProgressStore

	log      []narrative.Entry
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	flagMode bool
	err      error
	width    int
	height   int
}

// NewModel creates a model driving eng
func NewModel(eng *engine.GameEngine, opts ...Option) Model {
	m := Model{
		engine:   eng,
		viewport: viewport.New(60, 10),
		help:     help.New(),
		keys:     keys,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.narrator == nil {
		m.narrator = narrative.NewDefaultScript(eng.GetRegistry())
	}
	m.appendLog(m.narrator.Opening(eng.GetConfig().ID, false)...)
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Flag):
			m.flagMode = !m.flagMode
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			m.reset()
			return m, nil
		}

		if dir, ok := m.direction(msg); ok {
			if m.flagMode {
				m.flag(dir)
			} else {
				m.move(dir)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.engine.GetState().Board.Rows-8, 3)
		m.refreshLog()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) direction(msg tea.KeyMsg) (string, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		return engine.DirectionUp, true
	case key.Matches(msg, m.keys.Down):
		return engine.DirectionDown, true
	case key.Matches(msg, m.keys.Left):
		return engine.DirectionLeft, true
	case key.Matches(msg, m.keys.Right):
		return engine.DirectionRight, true
	}
	return "", false
}

func (m *Model) move(dir string) {
	before := len(m.engine.GetState().CollectionLog)
	res, err := m.engine.Move(dir)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.appendLog(m.narrator.Narrate(m.engine.GetConfig().ID, res)...)
	m.recordProgress(before, res)
}

func (m *Model) flag(dir string) {
	m.flagMode = false
	dx, dy, err := engine.DirectionDelta(dir)
	if err != nil {
		m.err = err
		return
	}
	pos := m.engine.GetPlayerPosition()
	x, y := pos.X+dx, pos.Y+dy

	cell, err := m.engine.GetState().Board.At(x, y)
	if err != nil {
		m.err = err
		return
	}
	if err := m.engine.ToggleFlag(x, y); err != nil {
		m.err = err
		return
	}
	m.err = nil
	if after, _ := m.engine.GetState().Board.At(x, y); after.IsFlagged != cell.IsFlagged {
		m.appendLog(narrative.FlagToggled(after.IsFlagged))
	}
}

func (m *Model) reset() {
	cfg := m.engine.GetConfig()
	if m.progress != nil && cfg.AvoidCollected {
		m.engine.SetExcludedItems(m.progress.Collected())
	}
	if _, err := m.engine.Reset(); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.flagMode = false
	m.appendLog(m.narrator.Opening(cfg.ID, true)...)
}

func (m *Model) recordProgress(before int, res engine.TurnResult) {
	if m.progress == nil || res.NoOp {
		return
	}
	cfg := m.engine.GetConfig()
	state := m.engine.GetState()
	if len(state.CollectionLog) > before {
		if _, err := m.progress.RecordCollection(cfg.ID, state.CollectionLog[before:]); err != nil {
			logrus.WithError(err).Warn("Failed to record collection")
		}
	}
	if res.Status == engine.StatusWon {
		if err := m.progress.MarkCleared(cfg.ID, cfg.Unlocks); err != nil {
			logrus.WithError(err).Warn("Failed to record chapter clear")
		}
	}
}

func (m *Model) appendLog(entries ...narrative.Entry) {
	m.log = append(m.log, entries...)
	if len(m.log) > maxLog {
		m.log = append([]narrative.Entry(nil), m.log[len(m.log)-maxLog:]...)
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	lines := make([]string, 0, len(m.log))
	for _, e := range m.log {
		if e.Type == narrative.EntryEvent && e.Title != "" {
			lines = append(lines, eventStyle.Render(e.Title)+" "+e.Message)
			continue
		}
		lines = append(lines, e.Message)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// View implements tea.Model
func (m Model) View() string {
	cfg := m.engine.GetConfig()
	state := m.engine.GetState()

	title := titleStyle.Render(cfg.Name)
	main := lipgloss.JoinHorizontal(lipgloss.Top, renderBoard(state), panelStyle.Render(m.renderStatus()))

	footer := helpStyle.Render(m.help.View(m.keys))
	if m.flagMode {
		footer = modeStyle.Render("FLAG: pick a direction") + "  " + footer
	}
	if m.err != nil {
		footer = modeStyle.Render(m.err.Error()) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		main,
		"",
		m.viewport.View(),
		"",
		footer,
	)
}

func (m Model) renderStatus() string {
	state := m.engine.GetState()
	p := state.Player

	var b strings.Builder
	fmt.Fprintf(&b, "Status:  %s\n", narrative.StatusLine(p.Status))
	fmt.Fprintf(&b, "Turn:    %d\n", state.Turn)
	fmt.Fprintf(&b, "Decoys:  %d/%d\n", p.HP, p.MaxHP)
	if state.RequiredItems > 0 {
		fmt.Fprintf(&b, "Items:   %d/%d\n", p.Collected, state.RequiredItems)
	}
	fmt.Fprintf(&b, "Threat:  %s\n", engine.AnalyzeThreat(state, m.engine.GetRegistry()))
	if len(state.CollectionLog) > 0 {
		b.WriteString("\nRecovered:\n")
		for _, r := range state.CollectionLog {
			name := r.ItemID
			if def, ok := m.engine.GetRegistry().Items[r.ItemID]; ok {
				name = def.Name
			}
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return b.String()
}

// renderBoard draws the board as the player sees it, one styled symbol per cell
func renderBoard(state *engine.GameState) string {
	var b strings.Builder
	for y := 0; y < state.Board.Rows; y++ {
		for x := 0; x < state.Board.Cols; x++ {
			sym := state.VisibleSymbol(x, y)
			style, ok := symbolStyles[sym]
			if !ok {
				style = numberStyle
			}
			b.WriteString(style.Render(sym))
			if x < state.Board.Cols-1 {
				b.WriteString(" ")
			}
		}
		if y < state.Board.Rows-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Run plays eng in the terminal until the user quits
func Run(eng *engine.GameEngine, opts ...Option) error {
	p := tea.NewProgram(NewModel(eng, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
