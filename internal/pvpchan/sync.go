package pvpchan

import (
    "context"
    "errors"
    "fmt"
    "slices"
    "strings"
    "sync"

    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/internal/pvpchess"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "go.uber.org/zap"
)

// Synchronizer keeps one local Session converged with the moves published for its game.
// Remote moves are replayed through the session; anything that cannot be reproduced
// rebases the session on the sender's FEN.
type Synchronizer struct {
    gameID  string
    session *pvpchess.Session
    pub     pvpchess.Publisher
    log     *zap.Logger

    mu       sync.Mutex
    onChange []func(pvpchess.GameStatus)
}

func NewSynchronizer(gameID string, s *pvpchess.Session, pub pvpchess.Publisher, log *zap.Logger) *Synchronizer {
    if log == nil { log = zap.NewNop() }
    return &Synchronizer{gameID: strings.TrimSpace(gameID), session: s, pub: pub, log: log}
}

func (y *Synchronizer) Session() *pvpchess.Session { return y.session }

// OnChange registers fn to receive the status after every remote move or resync.
func (y *Synchronizer) OnChange(fn func(pvpchess.GameStatus)) {
    if fn == nil { return }
    y.mu.Lock()
    y.onChange = append(y.onChange, fn)
    y.mu.Unlock()
}

func (y *Synchronizer) notify(st pvpchess.GameStatus) {
    y.mu.Lock()
    fns := slices.Clone(y.onChange)
    y.mu.Unlock()
    for _, fn := range fns {
        fn(st)
    }
}

// Publish sends the message for an applied result. Results without an applied move
// (an open promotion choice) are not published.
func (y *Synchronizer) Publish(ctx context.Context, r pvpchess.MoveResult) error {
    msg, ok := pvpchess.NewMoveMessage(y.gameID, r)
    if !ok || y.pub == nil { return nil }
    if err := y.pub.Publish(ctx, msg); err != nil {
        return fmt.Errorf("publish ply %d: %w", msg.Ply, err)
    }
    return nil
}

// PlayLocal applies a move for playerID and publishes it. With promo set, a promotion
// is completed in the same call.
func (y *Synchronizer) PlayLocal(ctx context.Context, playerID string, from, to position.Square, promo position.PieceKind) (pvpchess.MoveResult, error) {
    if promo != position.NoKind && !y.session.IsPromotion(from, to) {
        return pvpchess.MoveResult{}, fmt.Errorf("%w: %s%s is not a promotion", position.ErrIllegalMove, from, to)
    }
    res, err := y.session.AttemptMoveAs(playerID, from, to)
    if err != nil { return res, err }
    if res.Applied == nil && len(res.Status.AwaitingPromotion) > 0 && promo != position.NoKind {
        res, err = y.session.ResolvePromotionAs(playerID, promo)
        if err != nil { return res, err }
    }
    if err := y.Publish(ctx, res); err != nil { return res, err }
    return res, nil
}

// OnRemoteMove applies msg to the session. applied is false when the message was an
// echo or older than the local ply. A *DivergenceError means the session was rebased on
// msg.ResultingFEN; it is reported, not fatal.
func (y *Synchronizer) OnRemoteMove(ctx context.Context, msg chessdto.MoveMessage) (applied bool, err error) {
    if err := ctx.Err(); err != nil { return false, err }
    if strings.TrimSpace(msg.GameID) != y.gameID { return false, ErrForeignMessage }
    remote, err := position.ParseFEN(msg.ResultingFEN)
    if err != nil { return false, fmt.Errorf("%w: %v", ErrMalformedMessage, err) }
    mv, err := pvpchess.ParseMoveInput(msg.Move)
    if err != nil { return false, fmt.Errorf("%w: %v", ErrMalformedMessage, err) }
    if mv.Color == position.NoColor { mv.Color = remote.Turn().Opposite() }
    if msg.Ply < 0 { return false, fmt.Errorf("%w: ply %d", ErrMalformedMessage, msg.Ply) }

    var diverged *DivergenceError
    err = y.session.Exclusive(func(tx *pvpchess.SessionTx) error {
        if last, ok := tx.LastMove(); ok && last.Same(mv) && (msg.Ply == 0 || msg.Ply <= tx.Ply()) {
            return nil
        }
        if msg.Ply > 0 && msg.Ply <= tx.Ply() { return nil }
        if msg.Ply == 0 { msg.Ply = tx.Ply() + 1 }

        resync := func(cause error) error {
            if rerr := tx.Resync(msg); rerr != nil { return fmt.Errorf("resync after %v: %w", cause, rerr) }
            diverged = &DivergenceError{GameID: y.gameID, Move: msg.Move, Ply: msg.Ply, Cause: cause, ResyncedFEN: tx.FEN()}
            applied = true
            return nil
        }

        if msg.Ply > tx.Ply()+1 {
            return resync(fmt.Errorf("%w: local %d, remote %d", ErrMissedMoves, tx.Ply(), msg.Ply))
        }
        if mv.Color != tx.Turn() { return resync(ErrWrongSide) }
        if mv.Promotion != position.NoKind && !tx.IsPromotion(mv.From, mv.To) {
            return resync(fmt.Errorf("%w: %s%s is not a promotion", position.ErrIllegalMove, mv.From, mv.To))
        }
        res, aerr := tx.AttemptMove(mv.From, mv.To)
        if aerr != nil { return resync(aerr) }
        if res.Applied == nil {
            if mv.Promotion == position.NoKind { return resync(ErrNoPromotion) }
            res, aerr = tx.ResolvePromotion(mv.Promotion)
            if aerr != nil { return resync(aerr) }
        }
        if !tx.Position().Equivalent(remote) {
            return resync(fmt.Errorf("%w: local %q", ErrFENMismatch, res.FEN))
        }
        applied = true
        return nil
    })
    if err != nil { return false, err }
    if applied { y.notify(y.session.Status()) }
    if diverged != nil { return applied, diverged }
    return applied, nil
}

// Run drains sub until it ends or ctx is cancelled. Divergences are logged and the
// loop continues.
func (y *Synchronizer) Run(ctx context.Context, sub Subscription) error {
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-sub.Done():
            return nil
        case msg := <-sub.C():
            applied, err := y.OnRemoteMove(ctx, msg)
            var div *DivergenceError
            switch {
            case errors.As(err, &div):
                y.log.Warn("sync_divergence",
                    zap.String("game_id", y.gameID),
                    zap.Int("ply", div.Ply),
                    zap.String("resynced_fen", div.ResyncedFEN),
                    zap.Error(div.Cause))
            case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
                return err
            case err != nil:
                y.log.Debug("sync_reject", zap.String("game_id", y.gameID), zap.Int("ply", msg.Ply), zap.Error(err))
            case applied:
                y.log.Debug("sync_apply", zap.String("game_id", y.gameID), zap.Int("ply", msg.Ply), zap.String("san", msg.SAN))
            }
        }
    }
}
