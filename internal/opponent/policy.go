// Package opponent provides move-selection policies for computer-controlled seats.
// The session only depends on Policy; the implementations here are intentionally weak.
package opponent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-chess-arena/internal/position"
)

// ErrNoLegalMove is returned when asked to move in a position without legal moves.
var ErrNoLegalMove = errors.New("no legal move")

// ErrUnknownPolicy is returned by ByName for an unrecognised name.
var ErrUnknownPolicy = errors.New("unknown opponent policy")

// Policy chooses a move for the side to move. The result must be a member of
// pos.LegalMoves().
type Policy interface {
	Name() string
	ChooseMove(ctx context.Context, pos position.Position) (position.Move, error)
}

// Policy names accepted by ByName.
const (
	NameBasic   = "basic"
	NameSmart   = "smart"
	NameSmarter = "smarter"
)

// ByName returns the policy registered under name. An empty name selects basic.
func ByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameBasic, "random":
		return NewRandom(0), nil
	case NameSmart, "capture":
		return NewCaptureFirst(0), nil
	case NameSmarter, "material":
		return NewMaterial(0), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// source is a mutex-guarded rand shared by a policy's callers.
type source struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newSource(seed int64) *source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &source{r: rand.New(rand.NewSource(seed))}
}

func (s *source) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

func legalMoves(ctx context.Context, pos position.Position) ([]position.Move, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return nil, ErrNoLegalMove
	}
	return moves, nil
}

// Random picks uniformly among legal moves.
type Random struct{ rnd *source }

// NewRandom builds a Random policy. seed 0 seeds from the clock.
func NewRandom(seed int64) *Random { return &Random{rnd: newSource(seed)} }

func (p *Random) Name() string { return NameBasic }

func (p *Random) ChooseMove(ctx context.Context, pos position.Position) (position.Move, error) {
	moves, err := legalMoves(ctx, pos)
	if err != nil {
		return position.Move{}, err
	}
	return moves[p.rnd.intn(len(moves))], nil
}

// CaptureFirst picks a random capture when one exists, otherwise any random move.
type CaptureFirst struct{ rnd *source }

func NewCaptureFirst(seed int64) *CaptureFirst { return &CaptureFirst{rnd: newSource(seed)} }

func (p *CaptureFirst) Name() string { return NameSmart }

func (p *CaptureFirst) ChooseMove(ctx context.Context, pos position.Position) (position.Move, error) {
	moves, err := legalMoves(ctx, pos)
	if err != nil {
		return position.Move{}, err
	}
	var captures []position.Move
	for _, m := range moves {
		if m.Captured != position.NoKind {
			captures = append(captures, m)
		}
	}
	if len(captures) > 0 {
		return captures[p.rnd.intn(len(captures))], nil
	}
	return moves[p.rnd.intn(len(moves))], nil
}
