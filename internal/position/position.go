package position

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrInvalidFEN    = errors.New("invalid fen")
	ErrNothingToUndo = errors.New("nothing to undo")
)

// CastlingRights is a bit set of the four castling options.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// String renders the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var b strings.Builder
	if cr&WhiteKingSide != 0 {
		b.WriteByte('K')
	}
	if cr&WhiteQueenSide != 0 {
		b.WriteByte('Q')
	}
	if cr&BlackKingSide != 0 {
		b.WriteByte('k')
	}
	if cr&BlackQueenSide != 0 {
		b.WriteByte('q')
	}
	return b.String()
}

// castleMask returns the rights lost when a piece leaves or lands on sq.
func castleMask(sq Square) CastlingRights {
	switch sq {
	case e1:
		return WhiteKingSide | WhiteQueenSide
	case h1:
		return WhiteKingSide
	case a1:
		return WhiteQueenSide
	case e8:
		return BlackKingSide | BlackQueenSide
	case h8:
		return BlackKingSide
	case a8:
		return BlackQueenSide
	}
	return NoCastling
}

// Position is a complete chess position. It is a value: applying a move yields a new
// Position and never touches the receiver, so holders of an older value keep a
// consistent board.
type Position struct {
	board    [64]Piece
	turn     Color
	castling CastlingRights
	ep       Square
	halfmove int
	fullmove int
}

// Start returns the standard initial position.
func Start() Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Position) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.board[sq]
}

func (p Position) Turn() Color { return p.turn }
func (p Position) Castling() CastlingRights { return p.castling }
func (p Position) EnPassant() Square { return p.ep }
func (p Position) HalfMoveClock() int { return p.halfmove }
func (p Position) FullMoveNumber() int { return p.fullmove }

// KingSquare returns the square of c's king, or NoSquare.
func (p Position) KingSquare(c Color) Square {
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.board[sq]; pc.Kind == King && pc.Color == c {
			return sq
		}
	}
	return NoSquare
}

// InCheck reports whether the side to move is in check.
func (p Position) InCheck() bool {
	k := p.KingSquare(p.turn)
	return k != NoSquare && p.Attacked(k, p.turn.Opposite())
}

// LegalMoves returns every legal move for the side to move.
func (p Position) LegalMoves() []Move {
	moves := make([]Move, 0, 48)
	for sq := Square(0); sq < NoSquare; sq++ {
		moves = p.appendLegal(moves, sq)
	}
	return moves
}

// LegalMovesFrom returns the legal moves originating on sq.
func (p Position) LegalMovesFrom(sq Square) []Move {
	if !sq.Valid() {
		return nil
	}
	return p.appendLegal(nil, sq)
}

func (p Position) appendLegal(dst []Move, from Square) []Move {
	pseudo := p.pseudoMoves(from, nil)
	for _, m := range pseudo {
		if p.legal(m) {
			dst = append(dst, m)
		}
	}
	return dst
}

func (p Position) legal(m Move) bool {
	next := p.play(m)
	k := next.KingSquare(p.turn)
	return k != NoSquare && !next.Attacked(k, p.turn.Opposite())
}

func (p Position) hasLegalMove() bool {
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.board[sq]; pc.Empty() || pc.Color != p.turn {
			continue
		}
		for _, m := range p.pseudoMoves(sq, nil) {
			if p.legal(m) {
				return true
			}
		}
	}
	return false
}

// Lookup finds the legal move matching from/to/promotion.
func (p Position) Lookup(from, to Square, promo PieceKind) (Move, bool) {
	for _, m := range p.LegalMovesFrom(from) {
		if m.To == to && m.Promotion == promo {
			return m, true
		}
	}
	return Move{}, false
}

// Apply validates m against the legal move set and returns the successor position and
// the fully populated move (piece, color, captured, flag).
func (p Position) Apply(m Move) (Position, Move, error) {
	if m.Color != NoColor && m.Color != p.turn {
		return p, m, fmt.Errorf("%w: %s is not %s to move", ErrIllegalMove, m.UCI(), m.Color.Name())
	}
	full, ok := p.Lookup(m.From, m.To, m.Promotion)
	if !ok || (m.Piece != NoKind && m.Piece != full.Piece) {
		return p, m, fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}
	return p.play(full), full, nil
}

// play makes a pseudo-legal move produced by the generator. No validation.
func (p Position) play(m Move) Position {
	next := p
	piece := next.board[m.From]
	next.board[m.From] = Piece{}
	switch m.Flag {
	case FlagEnPassant:
		next.board[NewSquare(m.To.File(), m.From.Rank())] = Piece{}
	case FlagCastle:
		rookFrom, rookTo := castleRookSquares(m.To)
		next.board[rookTo] = next.board[rookFrom]
		next.board[rookFrom] = Piece{}
	}
	if m.Promotion != NoKind {
		piece.Kind = m.Promotion
	}
	next.board[m.To] = piece

	next.castling &^= castleMask(m.From) | castleMask(m.To)
	next.ep = NoSquare
	if m.Piece == Pawn && abs(m.To.Rank()-m.From.Rank()) == 2 {
		next.ep = NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
	}
	if m.Piece == Pawn || m.Captured != NoKind {
		next.halfmove = 0
	} else {
		next.halfmove++
	}
	if p.turn == Black {
		next.fullmove++
	}
	next.turn = p.turn.Opposite()
	return next
}

func castleRookSquares(kingTo Square) (from, to Square) {
	switch kingTo {
	case g1:
		return h1, f1
	case c1:
		return a1, d1
	case g8:
		return h8, f8
	default:
		return a8, d8
	}
}

// epCapturable reports whether the en-passant target can actually be taken. Only then
// does the target distinguish positions for repetition purposes.
func (p Position) epCapturable() bool {
	if p.ep == NoSquare {
		return false
	}
	dr := -1
	if p.turn == Black {
		dr = 1
	}
	for _, df := range [2]int{-1, 1} {
		from, ok := offset(p.ep, df, dr)
		if !ok {
			continue
		}
		if pc := p.board[from]; pc.Kind == Pawn && pc.Color == p.turn {
			m := Move{From: from, To: p.ep, Piece: Pawn, Color: p.turn, Captured: Pawn, Flag: FlagEnPassant}
			if p.legal(m) {
				return true
			}
		}
	}
	return false
}

// RepetitionKey identifies the position for threefold-repetition counting: placement,
// side to move, castling rights and a capturable en-passant target.
func (p Position) RepetitionKey() string {
	ep := "-"
	if p.epCapturable() {
		ep = p.ep.String()
	}
	return p.placement() + " " + p.turn.String() + " " + p.castling.String() + " " + ep
}

// Equivalent reports whether p and q are the same game state: the repetition key plus
// both clocks. An en-passant target nobody can capture is ignored, so FENs written by
// encoders that always or only sometimes emit it compare equal.
func (p Position) Equivalent(q Position) bool {
	return p.halfmove == q.halfmove && p.fullmove == q.fullmove && p.RepetitionKey() == q.RepetitionKey()
}

// Material counts the non-king pieces of each kind per color.
func (p Position) Material(c Color) map[PieceKind]int {
	out := make(map[PieceKind]int, 5)
	for _, pc := range p.board {
		if pc.Empty() || pc.Kind == King || pc.Color != c {
			continue
		}
		out[pc.Kind]++
	}
	return out
}

// InsufficientMaterial reports K vs K, K+minor vs K, and positions where all
// remaining non-king pieces are bishops on a single square color.
func (p Position) InsufficientMaterial() bool {
	var (
		others      int
		minors      int
		bishops     int
		lightBishop bool
		darkBishop  bool
	)
	for sq := Square(0); sq < NoSquare; sq++ {
		pc := p.board[sq]
		if pc.Empty() || pc.Kind == King {
			continue
		}
		others++
		switch pc.Kind {
		case Knight:
			minors++
		case Bishop:
			minors++
			bishops++
			if sq.Light() {
				lightBishop = true
			} else {
				darkBishop = true
			}
		}
	}
	switch {
	case others == 0:
		return true
	case others == 1 && minors == 1:
		return true
	case others == bishops && !(lightBishop && darkBishop):
		return true
	}
	return false
}

// String draws the board from white's side, rank 8 first.
func (p Position) String() string {
	var b strings.Builder
	for r := 7; r >= 0; r-- {
		for f := 0; f < 8; f++ {
			c := p.board[NewSquare(f, r)].FENChar()
			if c == 0 {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
