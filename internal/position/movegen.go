package position

type delta struct{ df, dr int }

var (
	knightDeltas = [8]delta{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [8]delta{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	bishopDirs   = [4]delta{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirs     = [4]delta{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

func pawnDir(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

// Attacked reports whether any piece of color by attacks sq. Occupancy of sq itself
// does not matter.
func (p Position) Attacked(sq Square, by Color) bool {
	// a pawn of color by attacks sq from one rank behind it, relative to by
	back := -pawnDir(by)
	for _, df := range [2]int{-1, 1} {
		if from, ok := offset(sq, df, back); ok {
			if pc := p.board[from]; pc.Kind == Pawn && pc.Color == by {
				return true
			}
		}
	}
	for _, d := range knightDeltas {
		if from, ok := offset(sq, d.df, d.dr); ok {
			if pc := p.board[from]; pc.Kind == Knight && pc.Color == by {
				return true
			}
		}
	}
	for _, d := range kingDeltas {
		if from, ok := offset(sq, d.df, d.dr); ok {
			if pc := p.board[from]; pc.Kind == King && pc.Color == by {
				return true
			}
		}
	}
	if p.slideHits(sq, by, rookDirs[:], Rook) || p.slideHits(sq, by, bishopDirs[:], Bishop) {
		return true
	}
	return false
}

func (p Position) slideHits(sq Square, by Color, dirs []delta, slider PieceKind) bool {
	for _, d := range dirs {
		cur := sq
		for {
			next, ok := offset(cur, d.df, d.dr)
			if !ok {
				break
			}
			cur = next
			pc := p.board[cur]
			if pc.Empty() {
				continue
			}
			if pc.Color == by && (pc.Kind == slider || pc.Kind == Queen) {
				return true
			}
			break
		}
	}
	return false
}

// pseudoMoves appends the moves of the side-to-move piece on from, ignoring whether
// the mover's king is left in check. Castling is generated fully checked.
func (p Position) pseudoMoves(from Square, dst []Move) []Move {
	pc := p.board[from]
	if pc.Empty() || pc.Color != p.turn {
		return dst
	}
	switch pc.Kind {
	case Pawn:
		return p.pawnMoves(from, dst)
	case Knight:
		return p.stepMoves(from, pc, knightDeltas[:], dst)
	case Bishop:
		return p.slideMoves(from, pc, bishopDirs[:], dst)
	case Rook:
		return p.slideMoves(from, pc, rookDirs[:], dst)
	case Queen:
		dst = p.slideMoves(from, pc, rookDirs[:], dst)
		return p.slideMoves(from, pc, bishopDirs[:], dst)
	case King:
		dst = p.stepMoves(from, pc, kingDeltas[:], dst)
		return p.castleMoves(from, dst)
	}
	return dst
}

func (p Position) target(from, to Square, pc Piece) (Move, bool) {
	occupant := p.board[to]
	m := Move{From: from, To: to, Piece: pc.Kind, Color: pc.Color}
	if occupant.Empty() {
		return m, true
	}
	if occupant.Color == pc.Color {
		return m, false
	}
	m.Captured = occupant.Kind
	m.Flag = FlagCapture
	return m, true
}

func (p Position) stepMoves(from Square, pc Piece, deltas []delta, dst []Move) []Move {
	for _, d := range deltas {
		to, ok := offset(from, d.df, d.dr)
		if !ok {
			continue
		}
		if m, ok := p.target(from, to, pc); ok {
			dst = append(dst, m)
		}
	}
	return dst
}

func (p Position) slideMoves(from Square, pc Piece, dirs []delta, dst []Move) []Move {
	for _, d := range dirs {
		cur := from
		for {
			to, ok := offset(cur, d.df, d.dr)
			if !ok {
				break
			}
			cur = to
			m, ok := p.target(from, to, pc)
			if !ok {
				break
			}
			dst = append(dst, m)
			if m.Captured != NoKind {
				break
			}
		}
	}
	return dst
}

func (p Position) pawnMoves(from Square, dst []Move) []Move {
	c := p.turn
	dir := pawnDir(c)
	startRank, lastRank := 1, 7
	if c == Black {
		startRank, lastRank = 6, 0
	}
	add := func(to Square, captured PieceKind) {
		base := Move{From: from, To: to, Piece: Pawn, Color: c, Captured: captured}
		if to.Rank() == lastRank {
			for _, k := range PromotionKinds {
				m := base
				m.Promotion = k
				m.Flag = FlagPromotion
				dst = append(dst, m)
			}
			return
		}
		if captured != NoKind {
			base.Flag = FlagCapture
		}
		dst = append(dst, base)
	}

	if one, ok := offset(from, 0, dir); ok && p.board[one].Empty() {
		add(one, NoKind)
		if from.Rank() == startRank {
			if two, ok := offset(from, 0, 2*dir); ok && p.board[two].Empty() {
				add(two, NoKind)
			}
		}
	}
	for _, df := range [2]int{-1, 1} {
		to, ok := offset(from, df, dir)
		if !ok {
			continue
		}
		if occ := p.board[to]; !occ.Empty() && occ.Color != c {
			add(to, occ.Kind)
			continue
		}
		if to == p.ep {
			dst = append(dst, Move{From: from, To: to, Piece: Pawn, Color: c, Captured: Pawn, Flag: FlagEnPassant})
		}
	}
	return dst
}

// castleMoves requires: right still held, rook at home, squares between empty, king
// not in check and not crossing or landing on an attacked square.
func (p Position) castleMoves(from Square, dst []Move) []Move {
	c := p.turn
	home, kingSide, queenSide := e1, WhiteKingSide, WhiteQueenSide
	if c == Black {
		home, kingSide, queenSide = e8, BlackKingSide, BlackQueenSide
	}
	if from != home || p.castling&(kingSide|queenSide) == 0 {
		return dst
	}
	enemy := c.Opposite()
	if p.Attacked(home, enemy) {
		return dst
	}
	rank := home.Rank()
	sq := func(file int) Square { return NewSquare(file, rank) }
	rook := Piece{Kind: Rook, Color: c}

	if p.castling&kingSide != 0 && p.board[sq(7)] == rook &&
		p.board[sq(5)].Empty() && p.board[sq(6)].Empty() &&
		!p.Attacked(sq(5), enemy) && !p.Attacked(sq(6), enemy) {
		dst = append(dst, Move{From: home, To: sq(6), Piece: King, Color: c, Flag: FlagCastle})
	}
	if p.castling&queenSide != 0 && p.board[sq(0)] == rook &&
		p.board[sq(1)].Empty() && p.board[sq(2)].Empty() && p.board[sq(3)].Empty() &&
		!p.Attacked(sq(3), enemy) && !p.Attacked(sq(2), enemy) {
		dst = append(dst, Move{From: home, To: sq(2), Piece: King, Color: c, Flag: FlagCastle})
	}
	return dst
}
