package pvpchan

import (
    "context"
    "fmt"

    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// Channel carries move messages for one game at a time. Delivery is at-least-once and
// in publish order per publisher; receivers de-duplicate.
type Channel interface {
    Publish(ctx context.Context, msg chessdto.MoveMessage) error
    Subscribe(ctx context.Context, gameID string) (Subscription, error)
    // Last returns the newest message published for gameID, or nil.
    Last(ctx context.Context, gameID string) (*chessdto.MoveMessage, error)
}

// Subscription is a live feed. Done is closed after Close or when the transport ends;
// C itself is never closed.
type Subscription interface {
    C() <-chan chessdto.MoveMessage
    Done() <-chan struct{}
    Close() error
}

// DivergenceError reports that a remote move could not be reproduced locally and the
// session was resynchronised from the message's FEN. It is informational.
type DivergenceError struct {
    GameID      string
    Move        chessdto.MoveInput
    Ply         int
    Cause       error
    ResyncedFEN string
}

func (e *DivergenceError) Error() string {
    return fmt.Sprintf("game %s diverged at ply %d (%s%s%s): %v; resynced to %q",
        e.GameID, e.Ply, e.Move.From, e.Move.To, e.Move.Promotion, e.Cause, e.ResyncedFEN)
}

func (e *DivergenceError) Unwrap() error { return e.Cause }

// Errors
var (
    ErrMalformedMessage = errf("malformed move message")
    ErrForeignMessage   = errf("message belongs to another game")
    ErrWrongSide        = errf("remote move is for the side not on turn")
    ErrMissedMoves      = errf("remote message skips plies")
    ErrNoPromotion      = errf("remote promotion without a piece")
    ErrFENMismatch      = errf("resulting position differs")
    ErrClosed           = errf("channel closed")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
