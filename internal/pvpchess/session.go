package pvpchess

import (
    "context"
    "fmt"
    "slices"
    "strings"
    "sync"
    "time"

    "github.com/park285/Cheese-chess-arena/internal/opponent"
    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// Session is one game: an engine, two seats, the move history, the captured ledger and
// at most one pending promotion. All methods are safe for concurrent use; mutations
// are serialised by a single mutex.
type Session struct {
    mu sync.Mutex

    id    string
    label string
    white Seat
    black Seat

    engine   *position.Engine
    startFEN string
    plyBase  int
    moves    []position.Move
    san      []string
    last     position.Move
    hasLast  bool
    ledger   CapturedLedger
    pending  []position.Move

    createdAt time.Time
    updatedAt time.Time
    now       func() time.Time
}

// SessionOption customises NewSession.
type SessionOption func(*Session) error

// WithStartFEN seats the players on an arbitrary validated position.
func WithStartFEN(fen string) SessionOption {
    return func(s *Session) error {
        e, err := position.NewEngineFromFEN(fen)
        if err != nil { return err }
        s.engine = e
        s.startFEN = e.FEN()
        return nil
    }
}

// WithLabel attaches a display label.
func WithLabel(label string) SessionOption {
    return func(s *Session) error { s.label = strings.TrimSpace(label); return nil }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
    return func(s *Session) error { s.now = now; return nil }
}

// NewSession seats white and black on the standard position.
func NewSession(id string, white, black Seat, opts ...SessionOption) (*Session, error) {
    white.PlayerID = strings.TrimSpace(white.PlayerID)
    black.PlayerID = strings.TrimSpace(black.PlayerID)
    if white.PlayerID == "" || black.PlayerID == "" { return nil, ErrInvalidPlayers }
    s := &Session{
        id:       strings.TrimSpace(id),
        white:    white,
        black:    black,
        engine: position.NewEngine(),
        now:    time.Now,
    }
    for _, opt := range opts {
        if err := opt(s); err != nil { return nil, err }
    }
    s.createdAt = s.now()
    s.updatedAt = s.createdAt
    return s, nil
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Label() string { return s.label }

// Seat returns the seat playing c.
func (s *Session) Seat(c position.Color) Seat {
    if c == position.Black { return s.black }
    return s.white
}

// ColorOf reports which side playerID sits on. When one identity holds both seats the
// side to move wins.
func (s *Session) ColorOf(playerID string) (position.Color, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.colorOfLocked(playerID)
}

func (s *Session) colorOfLocked(playerID string) (position.Color, bool) {
    turn := s.engine.Turn()
    if s.Seat(turn).PlayerID == playerID { return turn, true }
    if s.Seat(turn.Opposite()).PlayerID == playerID { return turn.Opposite(), true }
    return position.NoColor, false
}

// SelectSquare lists destination squares for the piece on sq. It is a query: nothing
// is returned when it is not playerID's turn, the game is over, or sq holds no piece
// of the side to move.
func (s *Session) SelectSquare(playerID string, sq position.Square) []position.Square {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.statusLocked().Terminal.Over() { return nil }
    turn := s.engine.Turn()
    if s.Seat(turn).PlayerID != strings.TrimSpace(playerID) { return nil }
    if pc := s.engine.Position().PieceAt(sq); pc.Empty() || pc.Color != turn { return nil }

    var out []position.Square
    seen := make(map[position.Square]bool)
    for _, m := range s.engine.LegalMovesFrom(sq) {
        if seen[m.To] { continue }
        seen[m.To] = true
        out = append(out, m.To)
    }
    return out
}

// IsPromotion reports whether from->to is a pawn move that needs a promotion kind.
func (s *Session) IsPromotion(from, to position.Square) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.engine.PromotionCandidates(from, to)) > 0
}

// AttemptMove applies from->to for the side to move. When the move is a promotion the
// four candidates are returned in Status.AwaitingPromotion and nothing is applied.
func (s *Session) AttemptMove(from, to position.Square) (MoveResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.attemptLocked(from, to)
}

// AttemptMoveAs checks seat and turn before AttemptMove.
func (s *Session) AttemptMoveAs(playerID string, from, to position.Square) (MoveResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := s.checkTurnLocked(playerID); err != nil { return MoveResult{}, err }
    return s.attemptLocked(from, to)
}

// ResolvePromotion completes the pending promotion with kind.
func (s *Session) ResolvePromotion(kind position.PieceKind) (MoveResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.resolveLocked(kind)
}

// ResolvePromotionAs checks seat and turn before ResolvePromotion.
func (s *Session) ResolvePromotionAs(playerID string, kind position.PieceKind) (MoveResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := s.checkTurnLocked(playerID); err != nil { return MoveResult{}, err }
    return s.resolveLocked(kind)
}

func (s *Session) checkTurnLocked(playerID string) error {
    c, ok := s.colorOfLocked(strings.TrimSpace(playerID))
    if !ok { return ErrNotAPlayer }
    if c != s.engine.Turn() { return ErrNotYourTurn }
    return nil
}

func (s *Session) attemptLocked(from, to position.Square) (MoveResult, error) {
    if s.statusLocked().Terminal.Over() { return MoveResult{}, ErrGameOver }
    if cands := s.engine.PromotionCandidates(from, to); len(cands) > 0 {
        s.pending = cands
        return s.resultLocked(nil, ""), nil
    }
    m, ok := s.engine.Position().Lookup(from, to, position.NoKind)
    if !ok { return MoveResult{}, fmt.Errorf("%w: %s%s", position.ErrIllegalMove, from, to) }
    return s.applyLocked(m)
}

func (s *Session) resolveLocked(kind position.PieceKind) (MoveResult, error) {
    if len(s.pending) == 0 { return MoveResult{}, ErrNoPendingPromotion }
    if s.statusLocked().Terminal.Over() { return MoveResult{}, ErrGameOver }
    for _, m := range s.pending {
        if m.Promotion == kind { return s.applyLocked(m) }
    }
    return MoveResult{}, fmt.Errorf("%w: cannot promote to %q", position.ErrIllegalMove, kind.String())
}

// applyLocked plays a legal move and updates history, ledger and timestamps.
func (s *Session) applyLocked(m position.Move) (MoveResult, error) {
    san, err := sanOf(s.engine.FEN(), m)
    if err != nil { return MoveResult{}, err }
    full, err := s.engine.Apply(m)
    if err != nil { return MoveResult{}, err }
    s.moves = append(s.moves, full)
    s.san = append(s.san, san)
    s.ledger.Record(full)
    s.last, s.hasLast = full, true
    s.pending = nil
    s.updatedAt = s.now()
    return s.resultLocked(&full, san), nil
}

func (s *Session) resultLocked(applied *position.Move, san string) MoveResult {
    return MoveResult{
        Applied: applied,
        SAN:     san,
        FEN:     s.engine.FEN(),
        Ply:     s.plyLocked(),
        Status:  s.statusLocked(),
    }
}

// Status derives the current GameStatus.
func (s *Session) Status() GameStatus {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.statusLocked()
}

func (s *Session) statusLocked() GameStatus {
    e := s.engine
    st := GameStatus{Turn: e.Turn(), InCheck: e.InCheck(), Terminal: TerminalNone}
    switch {
    case e.IsCheckmate():
        st.Terminal = TerminalCheckmate
        st.Winner = e.Turn().Opposite()
    case e.IsStalemate():
        st.Terminal = TerminalStalemate
    case e.IsInsufficientMaterial():
        st.Terminal = TerminalInsufficientMaterial
    case e.IsThreefoldRepetition():
        st.Terminal = TerminalThreefoldRepetition
    case e.IsFiftyMoveRule():
        st.Terminal = TerminalFiftyMoveRule
    }
    if len(s.pending) > 0 {
        st.AwaitingPromotion = append([]position.Move(nil), s.pending...)
    }
    return st
}

// PlayOpponent lets a computer seat move when it is on turn. ok is false when the side
// to move is human or the game is over.
func (s *Session) PlayOpponent(ctx context.Context) (res MoveResult, ok bool, err error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    seat := s.Seat(s.engine.Turn())
    if !seat.Computer() || s.statusLocked().Terminal.Over() { return MoveResult{}, false, nil }
    m, err := seat.Policy.ChooseMove(ctx, s.engine.Position())
    if err != nil { return MoveResult{}, false, fmt.Errorf("%s policy: %w", seat.Policy.Name(), err) }
    s.pending = nil
    res, err = s.applyLocked(m)
    if err != nil { return MoveResult{}, false, fmt.Errorf("%s policy: %w", seat.Policy.Name(), err) }
    return res, true, nil
}

// Resync discards local state in favour of an authoritative message. The engine is
// rebased on msg.ResultingFEN, the remote move becomes the last move, and the ledger is
// estimated from material since the captures in between are unknown.
func (s *Session) Resync(msg chessdto.MoveMessage) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.resyncLocked(msg)
}

func (s *Session) resyncLocked(msg chessdto.MoveMessage) error {
    p, err := position.ParseFEN(msg.ResultingFEN)
    if err != nil { return err }
    if msg.Ply < 1 { return fmt.Errorf("%w: resync needs a ply, got %d", ErrRecordCorrupt, msg.Ply) }
    s.san = resyncSAN(s.san, s.plyLocked(), msg.Ply, msg.SAN)
    s.engine.Reset(p)
    s.startFEN = p.FEN()
    s.moves = nil
    s.plyBase = msg.Ply
    if m, perr := ParseMoveInput(msg.Move); perr == nil {
        s.last, s.hasLast = m, true
        if m.Color == position.NoColor { s.last.Color = p.Turn().Opposite() }
    } else {
        s.last, s.hasLast = position.Move{}, false
    }
    s.ledger = LedgerFromMaterial(p)
    s.pending = nil
    s.updatedAt = s.now()
    return nil
}

// resyncSAN keeps the SAN entries for plies before ply and appends san for ply. The
// history holds the latest len(history) plies ending at localPly; when the entries
// right before ply are unknown, only san survives. Without san the history is cleared.
func resyncSAN(history []string, localPly, ply int, san string) []string {
    if san == "" { return nil }
    first := localPly - len(history) + 1
    keep := ply - first
    if keep < 0 || keep > len(history) { return []string{san} }
    return append(history[:keep:keep], san)
}

func (s *Session) plyLocked() int { return s.plyBase + len(s.moves) }

// Ply counts half-moves played since the game started.
func (s *Session) Ply() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.plyLocked()
}

// LastMove returns the most recently applied or resynced move.
func (s *Session) LastMove() (position.Move, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.last, s.hasLast
}

// History returns the moves applied since the start position (or the last resync).
func (s *Session) History() []position.Move {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]position.Move(nil), s.moves...)
}

func (s *Session) SANHistory() []string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]string(nil), s.san...)
}

func (s *Session) Captured() CapturedLedger {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.ledger.Clone()
}

func (s *Session) FEN() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.engine.FEN()
}

// Position returns the current position value.
func (s *Session) Position() position.Position {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.engine.Position()
}

// SessionTx is the view of a locked session handed to Exclusive.
type SessionTx struct{ s *Session }

// Exclusive runs fn with the session lock held so that a read-then-apply sequence is
// atomic. tx must not escape fn.
func (s *Session) Exclusive(fn func(tx *SessionTx) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return fn(&SessionTx{s: s})
}

func (tx *SessionTx) LastMove() (position.Move, bool) { return tx.s.last, tx.s.hasLast }
func (tx *SessionTx) Ply() int                        { return tx.s.plyLocked() }
func (tx *SessionTx) FEN() string                     { return tx.s.engine.FEN() }
func (tx *SessionTx) Turn() position.Color            { return tx.s.engine.Turn() }
func (tx *SessionTx) Position() position.Position     { return tx.s.engine.Position() }
func (tx *SessionTx) Status() GameStatus              { return tx.s.statusLocked() }

func (tx *SessionTx) IsPromotion(from, to position.Square) bool {
    return len(tx.s.engine.PromotionCandidates(from, to)) > 0
}

func (tx *SessionTx) AttemptMove(from, to position.Square) (MoveResult, error) {
    return tx.s.attemptLocked(from, to)
}

func (tx *SessionTx) ResolvePromotion(kind position.PieceKind) (MoveResult, error) {
    return tx.s.resolveLocked(kind)
}

func (tx *SessionTx) Resync(msg chessdto.MoveMessage) error { return tx.s.resyncLocked(msg) }

// Snapshot renders the persisted record.
func (s *Session) Snapshot() *chessdto.GameRecord {
    s.mu.Lock()
    defer s.mu.Unlock()
    st := s.statusLocked()
    rec := &chessdto.GameRecord{
        ID:             s.id,
        Label:          s.label,
        StartFEN:       s.startFEN,
        StartPly:       s.plyBase,
        FEN:            s.engine.FEN(),
        MovesUCI:       make([]string, 0, len(s.moves)),
        MoveHistorySAN: append([]string{}, s.san...),
        CapturedPieces: chessdto.CapturedPieces{White: kindTokens(s.ledger.White), Black: kindTokens(s.ledger.Black)},
        Turn:           st.Turn.Name(),
        InCheck:        st.InCheck,
        WhitePlayerID:  s.white.PlayerID,
        BlackPlayerID:  s.black.PlayerID,
        CreatedAt:      s.createdAt,
        UpdatedAt:      s.updatedAt,
    }
    for _, m := range s.moves {
        rec.MovesUCI = append(rec.MovesUCI, m.UCI())
    }
    rec.Status, rec.Method, rec.Winner = recordStatus(st)
    for _, c := range []position.Color{position.White, position.Black} {
        if seat := s.Seat(c); seat.Computer() {
            rec.Opponent = &chessdto.OpponentInfo{Policy: seat.Policy.Name(), Color: c.Name()}
        }
    }
    return rec
}

func recordStatus(st GameStatus) (status, method, winner string) {
    switch st.Terminal {
    case TerminalNone, "":
        return chessdto.StatusOngoing, "", ""
    case TerminalCheckmate:
        return chessdto.StatusCheckmate, string(st.Terminal), st.Winner.Name()
    default:
        return chessdto.StatusDraw, string(st.Terminal), ""
    }
}

// RestoreSession rebuilds a session by replaying rec.MovesUCI from rec.StartFEN. The
// replayed position must match rec.FEN.
func RestoreSession(rec *chessdto.GameRecord, opts ...SessionOption) (*Session, error) {
    if rec == nil { return nil, fmt.Errorf("%w: nil record", ErrRecordCorrupt) }
    white := Seat{PlayerID: rec.WhitePlayerID}
    black := Seat{PlayerID: rec.BlackPlayerID}
    if o := rec.Opponent; o != nil {
        pol, err := opponent.ByName(o.Policy)
        if err != nil { return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
        c, err := position.ParseColor(o.Color)
        if err != nil { return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
        if c == position.Black { black.Policy = pol } else { white.Policy = pol }
    }
    if strings.TrimSpace(rec.StartFEN) != "" {
        opts = append([]SessionOption{WithStartFEN(rec.StartFEN)}, opts...)
    }
    if rec.StartPly < 0 { return nil, fmt.Errorf("%w: start ply %d", ErrRecordCorrupt, rec.StartPly) }
    s, err := NewSession(rec.ID, white, black, append(opts, WithLabel(rec.Label))...)
    if err != nil { return nil, err }
    s.plyBase = rec.StartPly
    if s.plyBase > 0 { s.ledger = LedgerFromMaterial(s.engine.Position()) }
    for i, raw := range rec.MovesUCI {
        from, to, promo, err := position.ParseUCI(raw)
        if err != nil { return nil, fmt.Errorf("%w: move %d: %v", ErrRecordCorrupt, i+1, err) }
        m, ok := s.engine.Position().Lookup(from, to, promo)
        if !ok { return nil, fmt.Errorf("%w: move %d %s is illegal", ErrRecordCorrupt, i+1, raw) }
        if _, err := s.applyLocked(m); err != nil { return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
    }
    if rec.FEN != "" {
        want, err := position.ParseFEN(rec.FEN)
        if err != nil { return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
        if !want.Equivalent(s.engine.Position()) {
            return nil, fmt.Errorf("%w: replay gives %q, record has %q", ErrRecordCorrupt, s.engine.FEN(), rec.FEN)
        }
    }
    // SAN recorded before the start position is kept when it ends with the replayed moves.
    if n := len(rec.MoveHistorySAN); n > len(s.san) && n <= s.plyLocked() && slices.Equal(rec.MoveHistorySAN[n-len(s.san):], s.san) {
        s.san = append([]string(nil), rec.MoveHistorySAN...)
    }
    if !rec.CreatedAt.IsZero() { s.createdAt = rec.CreatedAt }
    if !rec.UpdatedAt.IsZero() { s.updatedAt = rec.UpdatedAt }
    return s, nil
}
