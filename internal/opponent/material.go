package opponent

import (
	"context"

	"github.com/park285/Cheese-chess-arena/internal/position"
)

// mateScore outranks any material swing.
const mateScore = 1000

// Material looks one ply ahead and keeps the move with the best material balance for
// the mover. Ties are broken at random.
type Material struct{ rnd *source }

func NewMaterial(seed int64) *Material { return &Material{rnd: newSource(seed)} }

func (p *Material) Name() string { return NameSmarter }

func (p *Material) ChooseMove(ctx context.Context, pos position.Position) (position.Move, error) {
	moves, err := legalMoves(ctx, pos)
	if err != nil {
		return position.Move{}, err
	}
	me := pos.Turn()
	eng := position.NewEngineAt(pos)

	var best []position.Move
	bestScore := 0
	for i, m := range moves {
		if _, err := eng.Apply(m); err != nil {
			return position.Move{}, err
		}
		score := balance(eng.Position(), me)
		if eng.IsCheckmate() {
			score += mateScore
		}
		if _, err := eng.Undo(); err != nil {
			return position.Move{}, err
		}
		switch {
		case i == 0 || score > bestScore:
			bestScore = score
			best = append(best[:0], m)
		case score == bestScore:
			best = append(best, m)
		}
	}
	return best[p.rnd.intn(len(best))], nil
}

// balance is the mover's material minus the opponent's.
func balance(pos position.Position, me position.Color) int {
	sum := func(c position.Color) int {
		total := 0
		for kind, n := range pos.Material(c) {
			total += kind.Value() * n
		}
		return total
	}
	return sum(me) - sum(me.Opposite())
}
