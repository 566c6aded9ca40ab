package position

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN decodes and validates a FEN string. The clocks may be omitted, in which
// case they default to 0 and 1.
func ParseFEN(fen string) (Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 4 && len(fields) != 6 {
		return Position{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrInvalidFEN, len(fields))
	}
	var p Position
	if err := p.parsePlacement(fields[0]); err != nil {
		return Position{}, err
	}

	switch fields[1] {
	case "w":
		p.turn = White
	case "b":
		p.turn = Black
	default:
		return Position{}, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			switch fields[2][i] {
			case 'K':
				p.castling |= WhiteKingSide
			case 'Q':
				p.castling |= WhiteQueenSide
			case 'k':
				p.castling |= BlackKingSide
			case 'q':
				p.castling |= BlackQueenSide
			default:
				return Position{}, fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
		}
	}
	p.castling = p.sanitizeCastling()

	p.ep = NoSquare
	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return Position{}, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, fields[3])
		}
		wantRank := 5
		if p.turn == Black {
			wantRank = 2
		}
		if sq.Rank() != wantRank {
			return Position{}, fmt.Errorf("%w: en passant %q on wrong rank", ErrInvalidFEN, fields[3])
		}
		p.ep = sq
	}

	p.halfmove, p.fullmove = 0, 1
	if len(fields) == 6 {
		hm, err := strconv.Atoi(fields[4])
		if err != nil || hm < 0 {
			return Position{}, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		fm, err := strconv.Atoi(fields[5])
		if err != nil || fm < 1 {
			return Position{}, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
		}
		p.halfmove, p.fullmove = hm, fm
	}

	if err := p.validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (p *Position) parsePlacement(s string) error {
	ranks := strings.Split(s, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pc, ok := pieceFromFEN(c)
			if !ok {
				return fmt.Errorf("%w: bad piece %q", ErrInvalidFEN, c)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, rank+1)
			}
			p.board[NewSquare(file, rank)] = pc
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}
	return nil
}

// sanitizeCastling drops rights whose king or rook is not on its home square.
func (p Position) sanitizeCastling() CastlingRights {
	cr := p.castling
	check := func(right CastlingRights, king, rook Square, c Color) {
		if p.board[king] != (Piece{Kind: King, Color: c}) || p.board[rook] != (Piece{Kind: Rook, Color: c}) {
			cr &^= right
		}
	}
	check(WhiteKingSide, e1, h1, White)
	check(WhiteQueenSide, e1, a1, White)
	check(BlackKingSide, e8, h8, Black)
	check(BlackQueenSide, e8, a8, Black)
	return cr
}

func (p Position) validate() error {
	kings := map[Color]int{}
	for sq := Square(0); sq < NoSquare; sq++ {
		pc := p.board[sq]
		if pc.Kind == King {
			kings[pc.Color]++
		}
		if pc.Kind == Pawn && (sq.Rank() == 0 || sq.Rank() == 7) {
			return fmt.Errorf("%w: pawn on back rank %s", ErrInvalidFEN, sq)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: need exactly one king per side", ErrInvalidFEN)
	}
	waiting := p.turn.Opposite()
	if p.Attacked(p.KingSquare(waiting), p.turn) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}
	return nil
}

// FEN encodes the position in full six-field form.
func (p Position) FEN() string {
	return p.placement() + " " + p.turn.String() + " " + p.castling.String() + " " +
		p.ep.String() + " " + strconv.Itoa(p.halfmove) + " " + strconv.Itoa(p.fullmove)
}

func (p Position) placement() string {
	var b strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			pc := p.board[NewSquare(f, r)]
			if pc.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(pc.FENChar())
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if r > 0 {
			b.WriteByte('/')
		}
	}
	return b.String()
}
