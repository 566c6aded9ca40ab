package pvpchess

import (
    "errors"

    "github.com/park285/Cheese-chess-arena/internal/opponent"
    "github.com/park285/Cheese-chess-arena/internal/position"
)

// Terminal names the rule that ended the game, or TerminalNone.
type Terminal string

const (
    TerminalNone                 Terminal = "none"
    TerminalCheckmate            Terminal = "checkmate"
    TerminalStalemate            Terminal = "stalemate"
    TerminalInsufficientMaterial Terminal = "insufficientMaterial"
    TerminalThreefoldRepetition  Terminal = "threefoldRepetition"
    TerminalFiftyMoveRule        Terminal = "fiftyMoveRule"
)

// Over reports whether t ends the game.
func (t Terminal) Over() bool { return t != "" && t != TerminalNone }

// GameStatus is derived from the engine after every mutation and never stored.
type GameStatus struct {
    Turn              position.Color
    InCheck           bool
    Terminal          Terminal
    Winner            position.Color
    AwaitingPromotion []position.Move
}

// Seat is one side of the board. A seat with a Policy is played by the computer.
type Seat struct {
    PlayerID string
    Policy   opponent.Policy
}

// Computer reports whether the seat is policy driven.
func (s Seat) Computer() bool { return s.Policy != nil }

// MoveResult is what a mutating session call reports back. Applied is nil while a
// promotion choice is pending.
type MoveResult struct {
    Applied *position.Move
    SAN     string
    FEN     string
    Ply     int
    Status  GameStatus
}

// Errors
var (
    ErrInvalidPlayers     = errors.New("both player identities are required")
    ErrNotAPlayer         = errors.New("player is not seated in this game")
    ErrNotYourTurn        = errors.New("not your turn")
    ErrNoPendingPromotion = errors.New("no pending promotion")
    ErrGameOver           = errors.New("game is over")
    ErrGameNotFound       = errors.New("game not found")
    ErrConcurrentMove     = errors.New("concurrent move detected")
    ErrRecordCorrupt      = errors.New("game record does not replay")
    ErrMalformedMove      = errors.New("malformed move")
)

// CapturedLedger keeps removed pieces keyed by the color of the captured piece, in
// capture order.
type CapturedLedger struct {
    White []position.PieceKind
    Black []position.PieceKind
}

// Record appends the piece removed by m, if any.
func (l *CapturedLedger) Record(m position.Move) {
    if m.Captured == position.NoKind { return }
    switch m.Color.Opposite() {
    case position.White:
        l.White = append(l.White, m.Captured)
    case position.Black:
        l.Black = append(l.Black, m.Captured)
    }
}

// Rebuild replays moves from an empty ledger.
func (l *CapturedLedger) Rebuild(moves []position.Move) {
    l.White, l.Black = nil, nil
    for _, m := range moves {
        l.Record(m)
    }
}

// Clone returns an independent copy.
func (l CapturedLedger) Clone() CapturedLedger {
    return CapturedLedger{
        White: append([]position.PieceKind(nil), l.White...),
        Black: append([]position.PieceKind(nil), l.Black...),
    }
}

var startMaterial = []struct {
    kind  position.PieceKind
    count int
}{
    {position.Queen, 1}, {position.Rook, 2}, {position.Bishop, 2}, {position.Knight, 2}, {position.Pawn, 8},
}

// LedgerFromMaterial estimates the ledger from what is missing against the initial
// army. Promotions can hide captures; order is by value, not by time.
func LedgerFromMaterial(pos position.Position) CapturedLedger {
    var l CapturedLedger
    for _, c := range []position.Color{position.White, position.Black} {
        have := pos.Material(c)
        var missing []position.PieceKind
        for _, sm := range startMaterial {
            for i := have[sm.kind]; i < sm.count; i++ {
                missing = append(missing, sm.kind)
            }
        }
        if c == position.White { l.White = missing } else { l.Black = missing }
    }
    return l
}

func kindTokens(kinds []position.PieceKind) []string {
    out := make([]string, 0, len(kinds))
    for _, k := range kinds {
        out = append(out, k.String())
    }
    return out
}
