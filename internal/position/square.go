// Package position implements the chess rules core: an 8x8 mailbox board held as an
// immutable value, full legal move generation, FEN and UCI codecs and the draw/mate
// predicates used by game sessions.
package position

import (
	"fmt"
	"strings"
)

// Square is one of the 64 board coordinates, a1=0 .. h8=63 (rank-major).
type Square uint8

// NoSquare marks an absent square (no en-passant target, parse failures).
const NoSquare Square = 64

// Named squares used by castling.
const (
	a1 Square = 0
	b1 Square = 1
	c1 Square = 2
	d1 Square = 3
	e1 Square = 4
	f1 Square = 5
	g1 Square = 6
	h1 Square = 7
	a8 Square = 56
	b8 Square = 57
	c8 Square = 58
	d8 Square = 59
	e8 Square = 60
	f8 Square = 61
	g8 Square = 62
	h8 Square = 63
)

// NewSquare builds a square from zero-based file (a=0) and rank (1=0).
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

func (sq Square) File() int { return int(sq) & 7 }
func (sq Square) Rank() int { return int(sq) >> 3 }

// Valid reports whether sq is on the board.
func (sq Square) Valid() bool { return sq < NoSquare }

// String returns the algebraic name ("e4"), or "-" for NoSquare.
func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// Light reports whether sq is a light square (h1 is light).
func (sq Square) Light() bool {
	return (sq.File()+sq.Rank())%2 == 1
}

// MarshalText encodes the square as its algebraic name.
func (sq Square) MarshalText() ([]byte, error) {
	return []byte(sq.String()), nil
}

// UnmarshalText accepts algebraic names, case-insensitive.
func (sq *Square) UnmarshalText(b []byte) error {
	parsed, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*sq = parsed
	return nil
}

// ParseSquare parses "e4"-style coordinates.
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(file, rank), nil
}

// offset steps from sq by (df, dr); ok is false when the step leaves the board.
func offset(sq Square, df, dr int) (Square, bool) {
	f, r := sq.File()+df, sq.Rank()+dr
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return NoSquare, false
	}
	return NewSquare(f, r), true
}
