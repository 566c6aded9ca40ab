package position

// Engine is the mutable driver around Position: it keeps the undo stack and the
// repetition-key history needed by the threefold rule. It is not safe for concurrent
// use; sessions serialise access.
type Engine struct {
	pos   Position
	stack []frame
	keys  map[string]int
}

type frame struct {
	pos  Position
	move Move
	key  string
}

// NewEngine starts from the standard initial position.
func NewEngine() *Engine {
	return newEngine(Start())
}

// NewEngineFromFEN starts from an arbitrary validated position. Repetition history
// begins at that position.
func NewEngineFromFEN(fen string) (*Engine, error) {
	p, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	return newEngine(p), nil
}

// NewEngineAt starts from an existing position value.
func NewEngineAt(p Position) *Engine {
	return newEngine(p)
}

func newEngine(p Position) *Engine {
	e := &Engine{pos: p, keys: make(map[string]int)}
	e.keys[p.RepetitionKey()]++
	return e
}

// Position returns the current position value.
func (e *Engine) Position() Position { return e.pos }

func (e *Engine) Turn() Color { return e.pos.turn }
func (e *Engine) FEN() string { return e.pos.FEN() }
func (e *Engine) Ply() int { return len(e.stack) }
func (e *Engine) InCheck() bool { return e.pos.InCheck() }

// LegalMoves lists all legal moves for the side to move.
func (e *Engine) LegalMoves() []Move { return e.pos.LegalMoves() }

// LegalMovesFrom lists legal moves starting on sq.
func (e *Engine) LegalMovesFrom(sq Square) []Move { return e.pos.LegalMovesFrom(sq) }

// Apply validates and plays m. The returned move carries piece, captured and flag.
func (e *Engine) Apply(m Move) (Move, error) {
	next, full, err := e.pos.Apply(m)
	if err != nil {
		return Move{}, err
	}
	key := next.RepetitionKey()
	e.stack = append(e.stack, frame{pos: e.pos, move: full, key: key})
	e.keys[key]++
	e.pos = next
	return full, nil
}

// Undo restores the exact position before the last Apply and returns the undone move.
func (e *Engine) Undo() (Move, error) {
	n := len(e.stack)
	if n == 0 {
		return Move{}, ErrNothingToUndo
	}
	top := e.stack[n-1]
	e.stack = e.stack[:n-1]
	if e.keys[top.key]--; e.keys[top.key] <= 0 {
		delete(e.keys, top.key)
	}
	e.pos = top.pos
	return top.move, nil
}

// Moves returns the applied moves in order.
func (e *Engine) Moves() []Move {
	out := make([]Move, len(e.stack))
	for i, f := range e.stack {
		out[i] = f.move
	}
	return out
}

// PromotionCandidates returns the four moves from->to that differ only by promotion
// kind, queen first, or nil when from->to is not a legal promotion.
func (e *Engine) PromotionCandidates(from, to Square) []Move {
	var out []Move
	for _, m := range e.pos.LegalMovesFrom(from) {
		if m.To == to && m.Promotion != NoKind {
			out = append(out, m)
		}
	}
	return out
}

func (e *Engine) IsCheck() bool { return e.pos.InCheck() }

func (e *Engine) IsCheckmate() bool { return e.pos.InCheck() && !e.pos.hasLegalMove() }

func (e *Engine) IsStalemate() bool { return !e.pos.InCheck() && !e.pos.hasLegalMove() }

func (e *Engine) IsInsufficientMaterial() bool { return e.pos.InsufficientMaterial() }

// IsThreefoldRepetition reports whether the current position has occurred at least
// three times since the engine was seeded.
func (e *Engine) IsThreefoldRepetition() bool {
	return e.keys[e.pos.RepetitionKey()] >= 3
}

// IsFiftyMoveRule reports a half-move clock of 100 or more.
func (e *Engine) IsFiftyMoveRule() bool { return e.pos.halfmove >= 100 }

// Reset replaces the position wholesale and clears the undo stack and repetition
// history.
func (e *Engine) Reset(p Position) {
	e.pos = p
	e.stack = e.stack[:0]
	e.keys = map[string]int{p.RepetitionKey(): 1}
}
