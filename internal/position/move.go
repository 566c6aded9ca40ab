package position

import (
	"fmt"
	"strings"
)

// MoveFlag classifies a move. Derivable from the position, so it is not part of a
// move's identity.
type MoveFlag uint8

const (
	FlagNormal MoveFlag = iota
	FlagCapture
	FlagCastle
	FlagEnPassant
	FlagPromotion
)

var flagNames = [...]string{
	FlagNormal:    "normal",
	FlagCapture:   "capture",
	FlagCastle:    "castle",
	FlagEnPassant: "en-passant",
	FlagPromotion: "promotion",
}

func (f MoveFlag) String() string {
	if int(f) >= len(flagNames) {
		return "unknown"
	}
	return flagNames[f]
}

func (f MoveFlag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *MoveFlag) UnmarshalText(b []byte) error {
	for i, name := range flagNames {
		if name == string(b) {
			*f = MoveFlag(i)
			return nil
		}
	}
	return fmt.Errorf("invalid move flag %q", b)
}

// Move is the unit exchanged between engine, history and the wire. Once applied it is
// never modified.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Piece     PieceKind `json:"piece,omitempty"`
	Color     Color     `json:"color,omitempty"`
	Promotion PieceKind `json:"promotion,omitempty"`
	Captured  PieceKind `json:"captured,omitempty"`
	Flag      MoveFlag  `json:"flag"`
}

// Same reports move identity: from, to, promotion and color. Captured and Flag are
// derived and ignored.
func (m Move) Same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion && m.Color == o.Color
}

// UCI returns long algebraic coordinates, e.g. "e7e8q".
func (m Move) UCI() string {
	return m.From.String() + m.To.String() + m.Promotion.String()
}

func (m Move) String() string { return m.UCI() }

// ParseUCI splits "e2e4" / "e7e8q" into its parts.
func ParseUCI(s string) (from, to Square, promo PieceKind, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return NoSquare, NoSquare, NoKind, fmt.Errorf("invalid uci move %q", s)
	}
	if from, err = ParseSquare(s[0:2]); err != nil {
		return NoSquare, NoSquare, NoKind, err
	}
	if to, err = ParseSquare(s[2:4]); err != nil {
		return NoSquare, NoSquare, NoKind, err
	}
	if len(s) == 5 {
		promo, err = ParsePieceKind(s[4:])
		if err != nil || promo == Pawn || promo == King {
			return NoSquare, NoSquare, NoKind, fmt.Errorf("invalid promotion in %q", s)
		}
	}
	return from, to, promo, nil
}
