package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/Cheese-chess-arena/internal/msgcat"
	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

const capturedRecentLimit = 8

// Formatter renders chess DTOs into short player-facing lines from the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) render(key string, data map[string]any, fallback string) string {
	if f == nil {
		return fallback
	}
	return f.cat.RenderOr(key, data, fallback)
}

// Status describes a StatusView: the terminal outcome if any, else a pending promotion,
// check, or whose turn it is.
func (f *Formatter) Status(v chessdto.StatusView) string {
	turn := colorTitle(v.Turn)
	switch v.Terminal {
	case "checkmate":
		w := colorTitle(v.Winner)
		return f.render("status.checkmate", map[string]any{"Winner": w}, "Checkmate. "+w+" wins.")
	case "stalemate", "insufficientMaterial", "threefoldRepetition", "fiftyMoveRule":
		return f.render("status."+v.Terminal, nil, "Draw ("+v.Terminal+").")
	}
	if len(v.AwaitingPromotion) > 0 {
		sq := v.AwaitingPromotion[0].To
		choices := promotionChoices(v.AwaitingPromotion)
		return f.render("status.promote", map[string]any{"Square": sq, "Choices": choices}, "Promote on "+sq+": "+choices+".")
	}
	if v.InCheck {
		return f.render("status.check", map[string]any{"Turn": turn}, turn+" is in check.")
	}
	return f.render("status.turn", map[string]any{"Turn": turn}, turn+" to move.")
}

// Move lists what happened in one application call followed by the resulting status.
func (f *Formatter) Move(summary *chessdto.MoveSummary) string {
	if summary == nil {
		return ""
	}
	var lines []string
	if m := summary.Applied; m != nil {
		c := colorTitle(m.Move.Color)
		lines = append(lines, f.render("move.applied", map[string]any{"Color": c, "SAN": m.SAN}, c+" played "+m.SAN+"."))
	}
	if m := summary.Computer; m != nil {
		lines = append(lines, f.render("move.computer", map[string]any{"SAN": m.SAN}, "Computer: "+m.SAN+"."))
	}
	lines = append(lines, f.Status(summary.Status))
	if summary.Game != nil {
		if captured := formatCaptured(summary.Game.CapturedPieces); captured != "" {
			lines = append(lines, f.render("game.captured", map[string]any{"Captured": captured}, "Captured: "+captured))
		}
	}
	return strings.Join(lines, "\n")
}

// Resynced tells a follower that its board was replaced by the server position.
func (f *Formatter) Resynced(ply int) string {
	return f.render("move.resynced", map[string]any{"Ply": ply}, fmt.Sprintf("Resynchronised at ply %d.", ply))
}

func (f *Formatter) Created(rec *chessdto.GameRecord) string {
	if rec == nil {
		return ""
	}
	data := map[string]any{"Label": rec.Label, "White": rec.WhitePlayerID, "Black": rec.BlackPlayerID}
	return f.render("game.created", data, rec.Label+": "+rec.WhitePlayerID+" vs "+rec.BlackPlayerID)
}

// Summary is a one-line view of a live record.
func (f *Formatter) Summary(rec *chessdto.GameRecord) string {
	if rec == nil {
		return ""
	}
	ply := rec.Ply()
	data := map[string]any{"Label": rec.Label, "White": rec.WhitePlayerID, "Black": rec.BlackPlayerID, "Ply": ply}
	return f.render("game.summary", data, fmt.Sprintf("%s | %s vs %s | ply %d", rec.Label, rec.WhitePlayerID, rec.BlackPlayerID, ply))
}

// Result describes an archived game.
func (f *Formatter) Result(g *chessdto.ArchivedGame) string {
	if g == nil {
		return ""
	}
	label := g.Label
	if label == "" {
		label = g.GameID
	}
	data := map[string]any{
		"Label":    label,
		"Result":   formatOutcome(g.Result),
		"Method":   g.Method,
		"Moves":    (len(g.MovesSAN) + 1) / 2,
		"Duration": formatGameDuration(g.Duration),
	}
	return f.render("game.result", data, fmt.Sprintf("%s ended %s (%s).", label, formatOutcome(g.Result), g.Method))
}

func formatOutcome(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func colorTitle(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "white", "w":
		return "White"
	case "black", "b":
		return "Black"
	default:
		return "-"
	}
}

func promotionChoices(cands []chessdto.MoveInput) string {
	names := make([]string, 0, len(cands))
	for _, m := range cands {
		if n := pieceName(m.Promotion); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func pieceName(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "q":
		return "queen"
	case "r":
		return "rook"
	case "b":
		return "bishop"
	case "n":
		return "knight"
	case "p":
		return "pawn"
	default:
		return ""
	}
}

// formatCaptured lists the most recent captures per side, newest first. Keys are the
// color of the captured piece.
func formatCaptured(captured chessdto.CapturedPieces) string {
	white := formatCapturedSequence(recentPieces(captured.White, capturedRecentLimit))
	black := formatCapturedSequence(recentPieces(captured.Black, capturedRecentLimit))
	if white == "" && black == "" {
		return ""
	}
	var parts []string
	if white != "" {
		parts = append(parts, "white "+white)
	}
	if black != "" {
		parts = append(parts, "black "+black)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []string) string {
	if len(order) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(order))
	for _, token := range order {
		if symbol := capturedSymbol(token); symbol != "" {
			tokens = append(tokens, symbol)
		}
	}
	return strings.Join(tokens, " ")
}

func capturedSymbol(piece string) string {
	switch strings.ToLower(strings.TrimSpace(piece)) {
	case "queen", "q":
		return "Q"
	case "rook", "r":
		return "R"
	case "bishop", "b":
		return "B"
	case "knight", "n":
		return "N"
	case "pawn", "p":
		return "P"
	default:
		if piece == "" {
			return ""
		}
		return strings.ToUpper(string([]rune(piece)[0]))
	}
}

func recentPieces(order []string, limit int) []string {
	if len(order) == 0 || limit <= 0 {
		return nil
	}
	if len(order) > limit {
		order = order[len(order)-limit:]
	}
	result := make([]string, len(order))
	for i := range order {
		result[i] = order[len(order)-1-i]
	}
	return result
}
