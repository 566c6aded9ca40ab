package position

import (
	"math/rand"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

// Random playouts cross-checked against corentings/chess: legal move counts and the
// full game state (placement, side to move, castling, capturable en passant, clocks)
// must agree at every ply.
func TestOracle_RandomPlayouts(t *testing.T) {
	starts := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	}
	rng := rand.New(rand.NewSource(7))
	for _, fen := range starts {
		for game := 0; game < 8; game++ {
			e, err := NewEngineFromFEN(fen)
			if err != nil {
				t.Fatalf("NewEngineFromFEN: %v", err)
			}
			opt, err := nchess.FEN(fen)
			if err != nil {
				t.Fatalf("nchess.FEN: %v", err)
			}
			ref := nchess.NewGame(opt)
			for ply := 0; ply < 80; ply++ {
				if ref.Outcome() != nchess.NoOutcome {
					break
				}
				moves := e.LegalMoves()
				if want := len(ref.ValidMoves()); len(moves) != want {
					t.Fatalf("%s after %v: %d legal moves, oracle has %d", fen, e.Moves(), len(moves), want)
				}
				if len(moves) == 0 {
					break
				}
				m := moves[rng.Intn(len(moves))]
				if _, err := e.Apply(m); err != nil {
					t.Fatalf("apply %s: %v", m, err)
				}
				if err := ref.PushNotationMove(m.UCI(), nchess.UCINotation{}, nil); err != nil {
					t.Fatalf("oracle rejected %s at %s: %v", m, ref.FEN(), err)
				}
				want, err := ParseFEN(ref.FEN())
				if err != nil {
					t.Fatalf("oracle FEN %q: %v", ref.FEN(), err)
				}
				if !e.Position().Equivalent(want) {
					t.Fatalf("diverged after %s: %s vs %s", m, e.FEN(), ref.FEN())
				}
			}
		}
	}
}
