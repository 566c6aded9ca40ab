package position

import (
	"fmt"
	"strings"
)

// Color is a side. The zero value is NoColor so that partially filled moves coming
// off the wire do not silently claim to be white.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Opposite returns the other side; NoColor stays NoColor.
func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// String returns "w", "b" or "-".
func (c Color) String() string {
	switch c {
	case White:
		return "w"
	case Black:
		return "b"
	default:
		return "-"
	}
}

// Name returns "white" / "black".
func (c Color) Name() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts w/b/white/black in any case; empty and "-" yield NoColor.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	case "", "-":
		return NoColor, nil
	default:
		return NoColor, fmt.Errorf("invalid color %q", s)
	}
}

// PieceKind is the type of a chessman; NoKind marks "none".
type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// PromotionKinds lists the kinds a pawn may promote to, in offer order.
var PromotionKinds = [4]PieceKind{Queen, Rook, Bishop, Knight}

var kindLetters = [...]string{NoKind: "", Pawn: "p", Knight: "n", Bishop: "b", Rook: "r", Queen: "q", King: "k"}

// String returns the lowercase FEN letter, empty for NoKind.
func (k PieceKind) String() string {
	if int(k) >= len(kindLetters) {
		return ""
	}
	return kindLetters[k]
}

func (k PieceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PieceKind) UnmarshalText(b []byte) error {
	parsed, err := ParsePieceKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePieceKind accepts FEN letters or English names in any case.
func ParsePieceKind(s string) (PieceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return NoKind, nil
	case "p", "pawn":
		return Pawn, nil
	case "n", "knight":
		return Knight, nil
	case "b", "bishop":
		return Bishop, nil
	case "r", "rook":
		return Rook, nil
	case "q", "queen":
		return Queen, nil
	case "k", "king":
		return King, nil
	default:
		return NoKind, fmt.Errorf("invalid piece kind %q", s)
	}
}

// Value is the conventional material value; the king counts zero.
func (k PieceKind) Value() int {
	switch k {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	default:
		return 0
	}
}

// Piece is an occupant of a square. The zero value is an empty square.
type Piece struct {
	Kind  PieceKind
	Color Color
}

func (p Piece) Empty() bool { return p.Kind == NoKind }

// FENChar returns the FEN letter: uppercase for white.
func (p Piece) FENChar() byte {
	if p.Empty() {
		return 0
	}
	c := p.Kind.String()[0]
	if p.Color == White {
		c -= 'a' - 'A'
	}
	return c
}

func pieceFromFEN(c byte) (Piece, bool) {
	color := Black
	if c >= 'A' && c <= 'Z' {
		color = White
		c += 'a' - 'A'
	}
	kind, err := ParsePieceKind(string(c))
	if err != nil || kind == NoKind {
		return Piece{}, false
	}
	return Piece{Kind: kind, Color: color}, true
}
