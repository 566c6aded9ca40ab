package chessclient

import (
    "context"
    "errors"
    "fmt"
    "slices"
    "strings"
    "sync"

    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/internal/pvpchan"
    "github.com/park285/Cheese-chess-arena/internal/pvpchess"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "go.uber.org/zap"
)

// ErrNotStarted is returned before the first snapshot arrived.
var ErrNotStarted = errors.New("follower has no snapshot yet")

// Follower mirrors one server game in a local Session. Snapshots replace the session;
// move events go through a Synchronizer, which drops echoes and resyncs on divergence.
type Follower struct {
    client   *Client
    stream   *Stream
    gameID   string
    playerID string
    log      *zap.Logger

    mu       sync.Mutex
    sync     *pvpchan.Synchronizer
    onChange []func(pvpchess.GameStatus)

    ready     chan struct{}
    readyOnce sync.Once
}

type FollowerOption func(*Follower)

func WithFollowerLogger(l *zap.Logger) FollowerOption {
    return func(f *Follower) { if l != nil { f.log = l } }
}

// WithReconnects sets how many times the stream redials after a drop.
func WithReconnects(n int) FollowerOption {
    return func(f *Follower) { f.stream.maxReconnectAttempts = n }
}

func NewFollower(c *Client, gameID, playerID string, opts ...FollowerOption) *Follower {
    id := strings.TrimSpace(gameID)
    f := &Follower{
        client:   c,
        stream:   NewStream(StreamURL(c.BaseURL(), id), 5),
        gameID:   id,
        playerID: strings.TrimSpace(playerID),
        log:      zap.NewNop(),
        ready:    make(chan struct{}),
    }
    for _, opt := range opts {
        opt(f)
    }
    f.stream.SetHeaderProvider(c.headers)
    f.stream.OnEvent(f.handleEvent)
    f.stream.OnStateChange(func(st StreamState) {
        f.log.Debug("follower_stream_state", zap.String("game_id", f.gameID), zap.String("state", st.String()))
    })
    return f
}

// Start connects and waits for the first snapshot.
func (f *Follower) Start(ctx context.Context) error {
    if err := f.stream.Connect(ctx); err != nil { return fmt.Errorf("stream connect: %w", err) }
    select {
    case <-f.ready:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (f *Follower) Close(ctx context.Context) error { return f.stream.Close(ctx) }

// OnChange registers fn for every status change of the local session.
func (f *Follower) OnChange(fn func(pvpchess.GameStatus)) {
    if fn == nil { return }
    f.mu.Lock()
    f.onChange = append(f.onChange, fn)
    y := f.sync
    f.mu.Unlock()
    if y != nil { y.OnChange(fn) }
}

// Session is the local replica, or nil before the first snapshot.
func (f *Follower) Session() *pvpchess.Session {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.sync == nil { return nil }
    return f.sync.Session()
}

// Play submits a move for the follower's player. The server answer is applied locally
// right away; the same messages arriving later on the stream are dropped as echoes.
func (f *Follower) Play(ctx context.Context, from, to, promotion string) (*chessdto.MoveSummary, error) {
    f.mu.Lock()
    y := f.sync
    f.mu.Unlock()
    if y == nil { return nil, ErrNotStarted }

    var (
        summary *chessdto.MoveSummary
        err     error
    )
    if promotion != "" {
        summary, err = f.client.Promote(ctx, chessdto.PromotionRequest{GameID: f.gameID, PlayerID: f.playerID, From: from, To: to, Promotion: promotion})
    } else {
        summary, err = f.client.Move(ctx, chessdto.MoveRequest{GameID: f.gameID, PlayerID: f.playerID, Move: chessdto.MoveInput{From: from, To: to}})
    }
    if err != nil { return nil, err }
    for _, msg := range []*chessdto.MoveMessage{summary.Applied, summary.Computer} {
        if msg == nil { continue }
        f.apply(ctx, y, *msg)
    }
    return summary, nil
}

// Highlight lists local destinations for the piece on square, without a round trip.
func (f *Follower) Highlight(square string) []string {
    s := f.Session()
    if s == nil { return nil }
    sq, err := position.ParseSquare(square)
    if err != nil { return nil }
    var out []string
    for _, to := range s.SelectSquare(f.playerID, sq) {
        out = append(out, to.String())
    }
    return out
}

func (f *Follower) handleEvent(ev *chessdto.StreamEvent) {
    switch ev.Type {
    case chessdto.EventSnapshot:
        if ev.Game == nil { return }
        if err := f.rebase(ev.Game); err != nil {
            f.log.Warn("follower_snapshot_error", zap.String("game_id", f.gameID), zap.Error(err))
            return
        }
        f.readyOnce.Do(func() { close(f.ready) })
    case chessdto.EventMove:
        if ev.Move == nil { return }
        f.mu.Lock()
        y := f.sync
        f.mu.Unlock()
        if y == nil { return }
        f.apply(context.Background(), y, *ev.Move)
    }
}

func (f *Follower) rebase(rec *chessdto.GameRecord) error {
    sess, err := pvpchess.RestoreSession(rec)
    if err != nil { return err }
    y := pvpchan.NewSynchronizer(f.gameID, sess, nil, f.log)
    f.mu.Lock()
    f.sync = y
    fns := slices.Clone(f.onChange)
    f.mu.Unlock()
    for _, fn := range fns {
        y.OnChange(fn)
        fn(sess.Status())
    }
    f.log.Debug("follower_snapshot", zap.String("game_id", f.gameID), zap.Int("ply", sess.Ply()))
    return nil
}

func (f *Follower) apply(ctx context.Context, y *pvpchan.Synchronizer, msg chessdto.MoveMessage) {
    _, err := y.OnRemoteMove(ctx, msg)
    var div *pvpchan.DivergenceError
    switch {
    case errors.As(err, &div):
        f.log.Warn("follower_divergence", zap.String("game_id", f.gameID), zap.Int("ply", div.Ply), zap.Error(div.Cause))
    case err != nil:
        f.log.Debug("follower_reject", zap.String("game_id", f.gameID), zap.Int("ply", msg.Ply), zap.Error(err))
    }
}
