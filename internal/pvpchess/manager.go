package pvpchess

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    petname "github.com/dustinkirkland/golang-petname"
    "github.com/google/uuid"
    "github.com/park285/Cheese-chess-arena/internal/obslog"
    "github.com/park285/Cheese-chess-arena/internal/opponent"
    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "go.uber.org/zap"
)

// Publisher delivers applied moves to the game channel.
type Publisher interface {
    Publish(ctx context.Context, msg chessdto.MoveMessage) error
}

// errNoWrite aborts a store update without treating it as a failure.
var errNoWrite = errors.New("no state change")

// Manager is the server-authoritative entry point: it restores a session from the
// store, applies one move under optimistic concurrency, persists, then publishes.
type Manager struct {
    store    Store
    pub      Publisher
    archive  Archive
    policies func(name string) (opponent.Policy, error)
    log      *zap.Logger
    now      func() time.Time
    newID    func() string
    newLabel func() string
}

type ManagerOption func(*Manager)

func WithPublisher(p Publisher) ManagerOption { return func(m *Manager) { m.pub = p } }

// WithArchive wires a repository for finished games.
func WithArchive(a Archive) ManagerOption { return func(m *Manager) { m.archive = a } }

func WithLogger(l *zap.Logger) ManagerOption {
    return func(m *Manager) { if l != nil { m.log = l } }
}

func WithPolicyLookup(fn func(name string) (opponent.Policy, error)) ManagerOption {
    return func(m *Manager) { if fn != nil { m.policies = fn } }
}

// WithIDs overrides game ID and label generation, for tests.
func WithIDs(id, label func() string) ManagerOption {
    return func(m *Manager) {
        if id != nil { m.newID = id }
        if label != nil { m.newLabel = label }
    }
}

func WithManagerClock(now func() time.Time) ManagerOption {
    return func(m *Manager) { if now != nil { m.now = now } }
}

func NewManager(store Store, opts ...ManagerOption) (*Manager, error) {
    if store == nil { return nil, fmt.Errorf("pvp manager requires a game store") }
    m := &Manager{
        store:    store,
        policies: opponent.ByName,
        log:      obslog.L(),
        now:      time.Now,
        newID:    func() string { return uuid.NewString() },
        newLabel: func() string { return petname.Generate(2, "-") },
    }
    for _, opt := range opts {
        opt(m)
    }
    return m, nil
}

// Close releases the store.
func (m *Manager) Close() error {
    if m == nil || m.store == nil { return nil }
    return m.store.Close()
}

// CreateGame seats two players, or one player and a computer policy. When the computer
// holds white its opening move is played, persisted and published before returning.
func (m *Manager) CreateGame(ctx context.Context, req chessdto.CreateGameRequest) (*chessdto.CreateGameResponse, error) {
    white := Seat{PlayerID: strings.TrimSpace(req.WhitePlayerID)}
    black := Seat{PlayerID: strings.TrimSpace(req.BlackPlayerID)}
    if o := req.Opponent; o != nil {
        color, err := position.ParseColor(o.Color)
        if err != nil || color == position.NoColor { return nil, fmt.Errorf("%w: opponent color %q", ErrInvalidPlayers, o.Color) }
        pol, err := m.policies(o.Policy)
        if err != nil { return nil, fmt.Errorf("%w: %v", ErrInvalidPlayers, err) }
        seat := &white
        if color == position.Black { seat = &black }
        seat.Policy = pol
        if seat.PlayerID == "" { seat.PlayerID = "cpu:" + pol.Name() }
    }

    sess, err := NewSession(m.newID(), white, black, WithLabel(m.newLabel()), WithClock(m.now))
    if err != nil { return nil, err }

    var opening *chessdto.MoveMessage
    res, played, err := sess.PlayOpponent(ctx)
    if err != nil { return nil, err }
    if played {
        if msg, ok := NewMoveMessage(sess.ID(), res); ok { opening = &msg }
    }

    rec := sess.Snapshot()
    if err := m.store.Create(ctx, rec); err != nil { return nil, err }
    m.log.Info("game_create",
        zap.String("game_id", rec.ID),
        zap.String("label", rec.Label),
        zap.String("white_id", rec.WhitePlayerID),
        zap.String("black_id", rec.BlackPlayerID),
        zap.Bool("computer_opening", opening != nil),
    )
    if opening != nil { m.publish(ctx, *opening) }
    return &chessdto.CreateGameResponse{Game: rec, Opening: opening}, nil
}

// Game loads the current record.
func (m *Manager) Game(ctx context.Context, id string) (*chessdto.GameRecord, error) {
    if strings.TrimSpace(id) == "" { return nil, ErrGameNotFound }
    return m.store.Load(ctx, id)
}

// Session restores a live session from the stored record.
func (m *Manager) Session(ctx context.Context, id string) (*Session, error) {
    rec, err := m.Game(ctx, id)
    if err != nil { return nil, err }
    return RestoreSession(rec, WithClock(m.now))
}

// Select lists the destinations of the piece on square for playerID.
func (m *Manager) Select(ctx context.Context, id, playerID, square string) (*chessdto.SelectResponse, error) {
    sqr, err := position.ParseSquare(square)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrMalformedMove, err) }
    sess, err := m.Session(ctx, id)
    if err != nil { return nil, err }
    resp := &chessdto.SelectResponse{Square: sqr.String(), Highlighted: []string{}}
    for _, to := range sess.SelectSquare(playerID, sqr) {
        resp.Highlighted = append(resp.Highlighted, to.String())
    }
    return resp, nil
}

// ApplyMove is the per-move application call. A promotion move without a promotion
// kind is not applied; the summary lists the candidates instead.
func (m *Manager) ApplyMove(ctx context.Context, req chessdto.MoveRequest) (*chessdto.MoveSummary, error) {
    return m.apply(ctx, req.GameID, req.PlayerID, req.Move, false)
}

// Promote completes a promotion in one call. ErrNoPendingPromotion when from->to is not
// a promotion.
func (m *Manager) Promote(ctx context.Context, req chessdto.PromotionRequest) (*chessdto.MoveSummary, error) {
    if strings.TrimSpace(req.Promotion) == "" { return nil, fmt.Errorf("%w: promotion kind required", ErrMalformedMove) }
    in := chessdto.MoveInput{From: req.From, To: req.To, Promotion: req.Promotion}
    return m.apply(ctx, req.GameID, req.PlayerID, in, true)
}

func (m *Manager) apply(ctx context.Context, gameID, playerID string, in chessdto.MoveInput, promotionOnly bool) (*chessdto.MoveSummary, error) {
    gameID, playerID = strings.TrimSpace(gameID), strings.TrimSpace(playerID)
    if gameID == "" || playerID == "" { return nil, fmt.Errorf("%w: game and player are required", ErrMalformedMove) }
    mv, err := ParseMoveInput(in)
    if err != nil { return nil, err }

    var (
        applied  *chessdto.MoveMessage
        computer *chessdto.MoveMessage
        status   GameStatus
        pending  *chessdto.GameRecord
    )
    rec, err := m.store.Update(ctx, gameID, func(cur *chessdto.GameRecord) (*chessdto.GameRecord, error) {
        applied, computer, pending = nil, nil, nil
        sess, err := RestoreSession(cur, WithClock(m.now))
        if err != nil { return nil, err }
        res, err := sess.AttemptMoveAs(playerID, mv.From, mv.To)
        if err != nil { return nil, err }
        if res.Applied != nil && promotionOnly { return nil, ErrNoPendingPromotion }
        if res.Applied != nil && mv.Promotion != position.NoKind {
            return nil, fmt.Errorf("%w: %s%s is not a promotion", position.ErrIllegalMove, mv.From, mv.To)
        }
        if res.Applied == nil {
            if mv.Promotion == position.NoKind {
                status, pending = res.Status, cur
                return nil, errNoWrite
            }
            if res, err = sess.ResolvePromotionAs(playerID, mv.Promotion); err != nil { return nil, err }
        }
        if msg, ok := NewMoveMessage(gameID, res); ok { applied = &msg }
        status = res.Status

        cres, played, err := sess.PlayOpponent(ctx)
        if err != nil { return nil, err }
        if played {
            if msg, ok := NewMoveMessage(gameID, cres); ok { computer = &msg }
            status = cres.Status
        }
        return sess.Snapshot(), nil
    })
    if errors.Is(err, errNoWrite) {
        return &chessdto.MoveSummary{Game: pending, Status: StatusView(status)}, nil
    }
    if err != nil {
        m.log.Info("game_move_rejected", zap.String("game_id", gameID), zap.String("player_id", playerID), zap.String("move", in.From+in.To+in.Promotion), zap.Error(err))
        return nil, err
    }

    m.log.Info("game_move",
        zap.String("game_id", rec.ID),
        zap.String("player_id", playerID),
        zap.String("last_uci", lastUCI(rec)),
        zap.Int("ply", rec.Ply()),
        zap.String("status", rec.Status),
        zap.String("method", rec.Method),
    )
    if applied != nil { m.publish(ctx, *applied) }
    if computer != nil { m.publish(ctx, *computer) }
    if rec.Finished() { _ = m.persistIfFinal(ctx, rec) }
    return &chessdto.MoveSummary{Game: rec, Applied: applied, Computer: computer, Status: StatusView(status)}, nil
}

// PGN renders the game, falling back to the archive once the live record expired.
func (m *Manager) PGN(ctx context.Context, id string) (string, error) {
    rec, err := m.Game(ctx, id)
    if err == nil { return FinishedFromRecord(rec).PGN, nil }
    if !errors.Is(err, ErrGameNotFound) || m.archive == nil { return "", err }
    g, aerr := m.archive.LoadResult(ctx, id)
    if aerr != nil { return "", aerr }
    return g.PGN, nil
}

// Archived returns the archived row of a finished game.
func (m *Manager) Archived(ctx context.Context, id string) (*chessdto.ArchivedGame, error) {
    if m.archive == nil { return nil, ErrGameNotFound }
    g, err := m.archive.LoadResult(ctx, id)
    if err != nil { return nil, err }
    return ToArchivedDTO(g), nil
}

func (m *Manager) publish(ctx context.Context, msg chessdto.MoveMessage) {
    if m.pub == nil { return }
    if err := m.pub.Publish(ctx, msg); err != nil {
        m.log.Warn("game_publish_error", zap.String("game_id", msg.GameID), zap.Int("ply", msg.Ply), zap.Error(err))
    }
}

// persistIfFinal audits and archives a finished game.
func (m *Manager) persistIfFinal(ctx context.Context, rec *chessdto.GameRecord) error {
    if m == nil || m.archive == nil || !rec.Finished() {
        return nil
    }
    if err := AuditRecord(rec); err != nil {
        m.log.Error("game_audit_mismatch", zap.String("game_id", rec.ID), zap.Error(err))
        return err
    }
    g := FinishedFromRecord(rec)
    if err := m.archive.SaveResult(ctx, g); err != nil {
        m.log.Error("game_result_persist_error", zap.String("game_id", rec.ID), zap.String("result", g.Result), zap.Error(err))
        return err
    }
    m.log.Info("game_result_persist", zap.String("game_id", rec.ID), zap.String("result", g.Result), zap.String("method", g.ResultMethod))
    return nil
}

func lastUCI(rec *chessdto.GameRecord) string {
    if n := len(rec.MovesUCI); n > 0 { return rec.MovesUCI[n-1] }
    return ""
}
