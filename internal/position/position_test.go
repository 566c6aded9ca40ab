package position

import (
	"errors"
	"sort"
	"testing"
)

func mustFEN(t *testing.T, fen string) Position {
	t.Helper()
	p, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return p
}

func perft(p Position, depth int) int {
	if depth == 0 {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return len(moves)
	}
	n := 0
	for _, m := range moves {
		next, _, err := p.Apply(m)
		if err != nil {
			panic(err)
		}
		n += perft(next, depth-1)
	}
	return n
}

func TestPerft_KnownPositions(t *testing.T) {
	cases := []struct {
		name  string
		fen   string
		depth int
		want  int
	}{
		{"start_d1", StartFEN, 1, 20},
		{"start_d2", StartFEN, 2, 400},
		{"start_d3", StartFEN, 3, 8902},
		{"kiwipete_d1", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 1, 48},
		{"kiwipete_d2", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 2, 2039},
		{"endgame_pins_d3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 3, 2812},
		{"promotions_d2", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", 2, 264},
		{"checks_d2", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", 2, 1486},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustFEN(t, tc.fen)
			if got := perft(p, tc.depth); got != tc.want {
				t.Fatalf("perft(%d) = %d, want %d", tc.depth, got, tc.want)
			}
		})
	}
}

func TestLegalMoves_NeverLeaveKingInCheck(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/4r3/4K3 w - - 0 1",
	}
	for _, fen := range fens {
		p := mustFEN(t, fen)
		for _, m := range p.LegalMoves() {
			next, full, err := p.Apply(m)
			if err != nil {
				t.Fatalf("%s: Apply(%s) on legal move: %v", fen, m, err)
			}
			if next.Attacked(next.KingSquare(full.Color), next.Turn()) {
				t.Fatalf("%s: %s leaves own king attacked", fen, m)
			}
		}
	}
}

func TestApply_RejectsIllegal(t *testing.T) {
	p := Start()
	bad := []Move{
		{From: NewSquare(4, 1), To: NewSquare(4, 4)},                // e2e5
		{From: NewSquare(4, 6), To: NewSquare(4, 4)},                // black pawn on white's turn
		{From: NewSquare(4, 1), To: NewSquare(4, 3), Color: Black},  // wrong color claimed
		{From: NewSquare(6, 0), To: NewSquare(5, 2), Piece: Bishop}, // wrong piece claimed
	}
	for _, m := range bad {
		if _, _, err := p.Apply(m); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("Apply(%+v) err = %v, want ErrIllegalMove", m, err)
		}
	}
	next, full, err := p.Apply(Move{From: NewSquare(4, 1), To: NewSquare(4, 3)})
	if err != nil {
		t.Fatalf("Apply e2e4: %v", err)
	}
	if full.Piece != Pawn || full.Color != White || full.Flag != FlagNormal {
		t.Fatalf("unexpected filled move %+v", full)
	}
	if next.EnPassant().String() != "e3" || next.Turn() != Black {
		t.Fatalf("unexpected state after e2e4: %s", next.FEN())
	}
	if p.PieceAt(NewSquare(4, 1)).Kind != Pawn {
		t.Fatalf("Apply mutated the receiver")
	}
}

func TestCastling_Rules(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want []string
	}{
		{"both_sides", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"e1c1", "e1g1"}},
		{"no_rights", "r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1", nil},
		{"in_check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQ - 0 1", nil},
		{"through_attack", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQ - 0 1", []string{"e1c1"}},
		{"landing_attack", "r3k2r/8/8/8/8/8/2r5/R3K2R w KQ - 0 1", []string{"e1g1"}},
		{"blocked_b_file", "r3k2r/8/8/8/8/8/8/RN2K2R w KQ - 0 1", []string{"e1g1"}},
		{"b_file_attacked_ok", "r3k2r/8/8/8/8/8/1r6/R3K2R w KQ - 0 1", []string{"e1c1", "e1g1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustFEN(t, tc.fen)
			var got []string
			for _, m := range p.LegalMovesFrom(NewSquare(4, 0)) {
				if m.Flag == FlagCastle {
					got = append(got, m.UCI())
				}
			}
			sort.Strings(got)
			if len(got) != len(tc.want) {
				t.Fatalf("castles = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("castles = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestCastling_MovesRookAndDropsRights(t *testing.T) {
	p := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 3 10")
	next, full, err := p.Apply(Move{From: NewSquare(4, 0), To: NewSquare(6, 0)})
	if err != nil {
		t.Fatalf("O-O: %v", err)
	}
	if full.Flag != FlagCastle {
		t.Fatalf("flag = %s, want castle", full.Flag)
	}
	if got := next.FEN(); got != "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 4 10" {
		t.Fatalf("after O-O: %s", got)
	}
	// capturing the h8 rook removes black's king-side right
	p = mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	next, _, err = p.Apply(Move{From: NewSquare(7, 0), To: NewSquare(7, 7)})
	if err != nil {
		t.Fatalf("Rxh8: %v", err)
	}
	if next.Castling() != WhiteQueenSide|BlackQueenSide {
		t.Fatalf("castling after Rxh8 = %s", next.Castling())
	}
}

func TestEnPassant_OnlyImmediately(t *testing.T) {
	p := mustFEN(t, "4k3/3p4/8/4P3/8/8/8/4K3 b - - 0 1")
	p, _, err := p.Apply(Move{From: NewSquare(3, 6), To: NewSquare(3, 4)}) // d7d5
	if err != nil {
		t.Fatalf("d7d5: %v", err)
	}
	ep, ok := p.Lookup(NewSquare(4, 4), NewSquare(3, 5), NoKind)
	if !ok || ep.Flag != FlagEnPassant || ep.Captured != Pawn {
		t.Fatalf("expected exd6 en passant, got %+v ok=%v", ep, ok)
	}
	after, _, err := p.Apply(ep)
	if err != nil {
		t.Fatalf("exd6: %v", err)
	}
	if !after.PieceAt(NewSquare(3, 4)).Empty() {
		t.Fatalf("captured pawn still on d5")
	}

	// a tempo later the capture is gone
	p, _, _ = p.Apply(Move{From: NewSquare(4, 0), To: NewSquare(3, 0)})
	p, _, _ = p.Apply(Move{From: NewSquare(4, 7), To: NewSquare(3, 7)})
	if _, ok := p.Lookup(NewSquare(4, 4), NewSquare(3, 5), NoKind); ok {
		t.Fatalf("en passant still available after an intervening move")
	}
}

func TestPromotion_RequiresKind(t *testing.T) {
	p := mustFEN(t, "8/4P3/8/8/8/k7/8/4K3 w - - 0 1")
	from, to := NewSquare(4, 6), NewSquare(4, 7)
	if _, _, err := p.Apply(Move{From: from, To: to}); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("promotion without kind: err = %v", err)
	}
	n := 0
	for _, m := range p.LegalMovesFrom(from) {
		if m.To == to {
			n++
			if m.Flag != FlagPromotion {
				t.Fatalf("flag = %s", m.Flag)
			}
		}
	}
	if n != 4 {
		t.Fatalf("got %d promotion candidates, want 4", n)
	}
	next, _, err := p.Apply(Move{From: from, To: to, Promotion: Knight})
	if err != nil {
		t.Fatalf("e8=N: %v", err)
	}
	if pc := next.PieceAt(to); pc.Kind != Knight || pc.Color != White {
		t.Fatalf("e8 holds %+v", pc)
	}
}

func TestInsufficientMaterial(t *testing.T) {
	cases := map[string]bool{
		"4k3/8/8/8/8/8/8/4K3 w - - 0 1":     true,  // kings only
		"4k3/8/8/8/8/8/8/4KN2 w - - 0 1":    true,  // K+N v K
		"4k3/8/8/8/8/8/8/4KB2 w - - 0 1":    true,  // K+B v K
		"4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1":  true,  // bishops on same color
		"4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1": false, // opposite colors
		"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1":   false,
		"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1":   false,
		"4k3/8/8/8/8/8/8/4KR2 w - - 0 1":    false,
	}
	for fen, want := range cases {
		if got := mustFEN(t, fen).InsufficientMaterial(); got != want {
			t.Fatalf("%s: InsufficientMaterial = %v, want %v", fen, got, want)
		}
	}
}

func TestFEN_RoundTripKeepsMovesAndStatus(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
	}
	for _, fen := range fens {
		p := mustFEN(t, fen)
		if got := p.FEN(); got != fen {
			t.Fatalf("FEN() = %q, want %q", got, fen)
		}
		q := mustFEN(t, p.FEN())
		if q != p {
			t.Fatalf("%s: round trip changed position", fen)
		}
		a, b := p.LegalMoves(), q.LegalMoves()
		if len(a) != len(b) || p.InCheck() != q.InCheck() {
			t.Fatalf("%s: round trip changed legal set or check", fen)
		}
	}
}

func TestParseFEN_Rejects(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8/8 w - - 0 1",                                 // no kings
		"4k3/8/8/8/8/8/8/4KK2 w - - 0 1",                            // two white kings
		"P3k3/8/8/8/8/8/8/4K3 w - - 0 1",                            // pawn on 8th
		"4k3/8/8/8/8/8/8/4K2r b - - 0 1",                            // white in check, black to move
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",  // side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1", // ep rank
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",  // 9 files
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1", // clock
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("ParseFEN(%q) err = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestRepetitionKey_IgnoresUncapturableEnPassant(t *testing.T) {
	a := mustFEN(t, "4k3/8/8/8/4P3/8/8/4K3 b - e3 0 1")
	b := mustFEN(t, "4k3/8/8/8/4P3/8/8/4K3 b - - 0 1")
	if a.RepetitionKey() != b.RepetitionKey() {
		t.Fatalf("keys differ: %q vs %q", a.RepetitionKey(), b.RepetitionKey())
	}
	c := mustFEN(t, "4k3/8/8/8/3pP3/8/8/4K3 b - e3 0 1")
	d := mustFEN(t, "4k3/8/8/8/3pP3/8/8/4K3 b - - 0 1")
	if c.RepetitionKey() == d.RepetitionKey() {
		t.Fatalf("capturable en passant should distinguish keys")
	}
}

func TestEquivalent_NormalisesEnPassantAndKeepsClocks(t *testing.T) {
	after := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	bare := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if !after.Equivalent(bare) || !bare.Equivalent(after) {
		t.Fatalf("uncapturable en passant should not matter")
	}
	clock := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 3 1")
	if after.Equivalent(clock) {
		t.Fatalf("half-move clock must matter")
	}
	rights := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b Kkq - 0 1")
	if after.Equivalent(rights) {
		t.Fatalf("castling rights must matter")
	}
	live := mustFEN(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	dead := mustFEN(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3")
	if live.Equivalent(dead) {
		t.Fatalf("capturable en passant must matter")
	}
}
