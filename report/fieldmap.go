// Package report renders printable field maps of a chapter session: the board
// as the player sees it, patrol routes, and the chapter's collection log.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/misoria/frontier/game/engine"
)

const (
	pageW     = 595
	pageH     = 842
	margin    = 40
	headerH   = 48
	footerH   = 200
	maxCell   = 36.0
	fontSize  = 8
	titleSize = 16
)

// ErrNoState is returned when there is no session to draw
var ErrNoState = errors.New("no game state to render")

// Options controls what the field map shows
type Options struct {
	// Title printed in the header; defaults to the chapter id
	Title string
	// Reveal draws every cell's content, for finished sessions or debugging
	Reveal bool
	// Routes draws each hostile's patrol route
	Routes bool
}

// FieldMap returns PDF bytes for one A4 page showing the session's board
func FieldMap(state *engine.GameState, opts Options) ([]byte, error) {
	if state == nil || len(state.Board.Cells) == 0 {
		return nil, ErrNoState
	}
	b := state.Board

	title := opts.Title
	if title == "" {
		title = state.ChapterID
	}

	// Fit the grid into the space between header and footer
	gridW := float64(pageW - 2*margin)
	gridH := float64(pageH-2*margin) - headerH - footerH
	cell := gridW / float64(b.Cols)
	if h := gridH / float64(b.Rows); h < cell {
		cell = h
	}
	if cell > maxCell {
		cell = maxCell
	}
	x0 := float64(margin) + (gridW-cell*float64(b.Cols))/2
	y0 := float64(margin) + headerH

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	drawHeader(pdf, state, title)

	pdf.SetDrawColor(90, 90, 90)
	pdf.SetLineWidth(0.5)
	for y := 0; y < b.Rows; y++ {
		for x := 0; x < b.Cols; x++ {
			c, _ := b.At(x, y)
			cx, cy := x0+float64(x)*cell, y0+float64(y)*cell
			drawCell(pdf, cx, cy, cell, c, cellGlyph(state, c, opts.Reveal))
		}
	}

	if opts.Routes {
		drawRoutes(pdf, state.Hostiles, x0, y0, cell)
	}
	for _, h := range state.Hostiles {
		p := h.Position()
		pdf.SetFillColor(190, 40, 40)
		pdf.Circle(x0+(float64(p.X)+0.5)*cell, y0+(float64(p.Y)+0.5)*cell, cell*0.3, "F")
	}

	// Player marker
	p := state.Player.Pos
	pdf.SetFillColor(30, 90, 200)
	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(1.5)
	pdf.Circle(x0+(float64(p.X)+0.5)*cell, y0+(float64(p.Y)+0.5)*cell, cell*0.32, "FD")
	pdf.SetLineWidth(1)

	drawFooter(pdf, state, y0+cell*float64(b.Rows)+16)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render field map: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *gofpdf.Fpdf, state *engine.GameState, title string) {
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageW-2*margin, 18, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", fontSize+1)
	pdf.SetXY(margin, margin+22)
	status := fmt.Sprintf("Turn %d   Status: %s   Decoys: %d/%d   Collected: %d/%d",
		state.Turn, state.Player.Status, state.Player.HP, state.Player.MaxHP,
		state.Player.Collected, state.RequiredItems)
	pdf.CellFormat(pageW-2*margin, 12, status, "", 0, "L", false, 0, "")
}

func drawCell(pdf *gofpdf.Fpdf, x, y, size float64, c engine.Cell, glyph string) {
	switch {
	case c.IsOpen && c.HasMine:
		pdf.SetFillColor(230, 120, 110)
	case c.IsOpen:
		pdf.SetFillColor(245, 240, 225)
	default:
		pdf.SetFillColor(170, 175, 180)
	}
	pdf.Rect(x, y, size, size, "FD")

	if glyph == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", size*0.45)
	switch glyph {
	case engine.SymbolFlag, engine.SymbolMine:
		pdf.SetTextColor(170, 20, 20)
	case engine.SymbolGoal:
		pdf.SetTextColor(20, 130, 60)
	case engine.SymbolItem, engine.SymbolEvent:
		pdf.SetTextColor(150, 90, 10)
	default:
		pdf.SetTextColor(40, 40, 40)
	}
	pdf.SetXY(x, y)
	pdf.CellFormat(size, size, glyph, "", 0, "CM", false, 0, "")
}

func drawRoutes(pdf *gofpdf.Fpdf, hostiles []engine.HostileState, x0, y0, cell float64) {
	pdf.SetDrawColor(190, 40, 40)
	pdf.SetLineWidth(1.2)
	pdf.SetDashPattern([]float64{4, 3}, 0)
	for _, h := range hostiles {
		if len(h.Route) < 2 {
			continue
		}
		for i := range h.Route {
			a, b := h.Route[i], h.Route[(i+1)%len(h.Route)]
			pdf.Line(
				x0+(float64(a.X)+0.5)*cell, y0+(float64(a.Y)+0.5)*cell,
				x0+(float64(b.X)+0.5)*cell, y0+(float64(b.Y)+0.5)*cell,
			)
		}
	}
	pdf.SetDashPattern([]float64{}, 0)
	pdf.SetLineWidth(0.5)
	pdf.SetDrawColor(90, 90, 90)
}

func drawFooter(pdf *gofpdf.Fpdf, state *engine.GameState, y float64) {
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "B", fontSize+2)
	pdf.SetXY(margin, y)
	pdf.CellFormat(200, 12, "Collection log", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", fontSize)
	line := y + 16
	if len(state.CollectionLog) == 0 {
		pdf.SetXY(margin, line)
		pdf.CellFormat(200, 10, "Nothing recovered yet.", "", 0, "L", false, 0, "")
	}
	for i, r := range state.CollectionLog {
		if line > pageH-margin-10 {
			break
		}
		pdf.SetXY(margin, line)
		pdf.CellFormat(200, 10, fmt.Sprintf("%2d. %s (turn %d)", i+1, r.ItemID, r.Turn), "", 0, "L", false, 0, "")
		line += 11
	}

	// Signals received go in a second column
	pdf.SetFont("Helvetica", "B", fontSize+2)
	pdf.SetXY(pageW/2, y)
	pdf.CellFormat(200, 12, "Signals", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", fontSize)
	line = y + 16
	for _, e := range state.Events {
		if line > pageH-margin-10 {
			break
		}
		pdf.SetXY(pageW/2, line)
		pdf.CellFormat(200, 10, e, "", 0, "L", false, 0, "")
		line += 11
	}
}

// cellGlyph is what the map prints inside a cell. Hidden cells print nothing
// unless flagged; mines print only once opened or when revealing.
func cellGlyph(state *engine.GameState, c engine.Cell, reveal bool) string {
	pos := engine.Coord{X: c.X, Y: c.Y}
	visible := reveal || c.IsOpen || engine.ManhattanDistance(state.Player.Pos, pos) <= engine.VisionRange
	if !visible {
		if c.IsFlagged {
			return engine.SymbolFlag
		}
		return ""
	}

	switch {
	case c.HasMine:
		if reveal || c.IsOpen {
			return engine.SymbolMine
		}
		if c.IsFlagged {
			return engine.SymbolFlag
		}
		return ""
	case c.IsGoal:
		return engine.SymbolGoal
	case c.EventID != "":
		return engine.SymbolEvent
	case c.ItemID != "":
		return engine.SymbolItem
	case c.NeighborMines > 0:
		return strconv.Itoa(c.NeighborMines)
	case c.IsFlagged:
		return engine.SymbolFlag
	default:
		return ""
	}
}
