package pvpchess

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/park285/Cheese-chess-arena/internal/domain"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    _ "github.com/lib/pq"
)

// Archive keeps finished games beyond the store TTL.
type Archive interface {
    SaveResult(ctx context.Context, g *domain.FinishedGame) error
    LoadResult(ctx context.Context, gameID string) (*domain.FinishedGame, error)
}

// Repository is the Postgres archive.
type Repository struct {
    db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(16)
    db.SetMaxIdleConns(8)
    db.SetConnMaxLifetime(30 * time.Minute)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
    if r == nil || r.db == nil { return nil }
    return r.db.Close()
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, g *domain.FinishedGame) error {
    if r == nil || r.db == nil || g == nil {
        return nil
    }
    movesUCIRaw, _ := json.Marshal(g.MovesUCI)
    movesSANRaw, _ := json.Marshal(g.MovesSAN)

    q := `INSERT INTO pvp_games (
        game_id, label, white_id, black_id, opponent,
        result, result_method, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (game_id) DO UPDATE SET
        label=EXCLUDED.label,
        white_id=EXCLUDED.white_id,
        black_id=EXCLUDED.black_id,
        opponent=EXCLUDED.opponent,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

    _, err := r.db.ExecContext(ctx, q,
        g.GameID, g.Label,
        g.WhitePlayerID, g.BlackPlayerID, g.Opponent,
        g.Result, g.ResultMethod, string(movesUCIRaw), string(movesSANRaw), g.PGN,
        g.StartedAt, g.EndedAt, g.Duration.Milliseconds(),
    )
    return err
}

// LoadResult returns ErrGameNotFound when the game was never archived.
func (r *Repository) LoadResult(ctx context.Context, gameID string) (*domain.FinishedGame, error) {
    if r == nil || r.db == nil { return nil, ErrGameNotFound }
    q := `SELECT game_id, label, white_id, black_id, opponent, result, result_method,
        moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
      FROM pvp_games WHERE game_id = $1`
    var (
        g                   domain.FinishedGame
        movesUCIRaw, sanRaw string
        durationMS          int64
    )
    err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(gameID)).Scan(
        &g.GameID, &g.Label, &g.WhitePlayerID, &g.BlackPlayerID, &g.Opponent, &g.Result, &g.ResultMethod,
        &movesUCIRaw, &sanRaw, &g.PGN, &g.StartedAt, &g.EndedAt, &durationMS,
    )
    if errors.Is(err, sql.ErrNoRows) { return nil, ErrGameNotFound }
    if err != nil { return nil, err }
    _ = json.Unmarshal([]byte(movesUCIRaw), &g.MovesUCI)
    _ = json.Unmarshal([]byte(sanRaw), &g.MovesSAN)
    g.Duration = time.Duration(durationMS) * time.Millisecond
    return &g, nil
}

// FinishedFromRecord converts a terminal record into an archive row with its PGN.
func FinishedFromRecord(rec *chessdto.GameRecord) *domain.FinishedGame {
    if rec == nil { return nil }
    result := rec.Winner
    if rec.Status == chessdto.StatusDraw { result = "draw" }
    g := &domain.FinishedGame{
        GameID:        rec.ID,
        Label:         rec.Label,
        WhitePlayerID: rec.WhitePlayerID,
        BlackPlayerID: rec.BlackPlayerID,
        Result:        result,
        ResultMethod:  rec.Method,
        MovesUCI:      append([]string(nil), rec.MovesUCI...),
        MovesSAN:      append([]string(nil), rec.MoveHistorySAN...),
        StartedAt:     rec.CreatedAt,
        EndedAt:       rec.UpdatedAt,
    }
    if rec.Opponent != nil { g.Opponent = rec.Opponent.Policy }
    if d := g.EndedAt.Sub(g.StartedAt); d > 0 { g.Duration = d }
    g.PGN = buildPGN(g, rec.StartFEN, mapResultToPGN(result))
    return g
}

// ToArchivedDTO converts an archive row for clients.
func ToArchivedDTO(g *domain.FinishedGame) *chessdto.ArchivedGame {
    if g == nil { return nil }
    return &chessdto.ArchivedGame{
        GameID:        g.GameID,
        Label:         g.Label,
        WhitePlayerID: g.WhitePlayerID,
        BlackPlayerID: g.BlackPlayerID,
        Result:        g.Result,
        Method:        g.ResultMethod,
        MovesUCI:      append([]string(nil), g.MovesUCI...),
        MovesSAN:      append([]string(nil), g.MovesSAN...),
        PGN:           g.PGN,
        StartedAt:     g.StartedAt,
        EndedAt:       g.EndedAt,
        Duration:      g.Duration,
    }
}

func mapResultToPGN(result string) string {
    switch strings.ToLower(strings.TrimSpace(result)) {
    case "white":
        return "1-0"
    case "black":
        return "0-1"
    case "draw":
        return "1/2-1/2"
    default:
        return "*"
    }
}

// buildPGN numbers moves from the start position's full-move counter; a game that
// starts with black to move opens with "N...".
func buildPGN(g *domain.FinishedGame, startFEN, pgnResult string) string {
    if g == nil {
        return ""
    }
    var b strings.Builder
    date := g.EndedAt
    if date.IsZero() {
        date = time.Now()
    }
    white, black := g.WhitePlayerID, g.BlackPlayerID
    b.WriteString("[Event \"Cheese Arena\"]\n")
    b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(g.Label)))
    b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
    b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
    b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
    if strings.TrimSpace(startFEN) != "" {
        b.WriteString("[SetUp \"1\"]\n")
        b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(startFEN)))
    }
    if strings.TrimSpace(g.ResultMethod) != "" {
        b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(g.ResultMethod)))
    }
    b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

    moveNo, blackFirst := pgnStart(startFEN)
    i := 0
    if blackFirst && len(g.MovesSAN) > 0 {
        b.WriteString(fmt.Sprintf("%d... %s ", moveNo, strings.TrimSpace(g.MovesSAN[0])))
        moveNo++
        i = 1
    }
    for ; i < len(g.MovesSAN); i += 2 {
        b.WriteString(fmt.Sprintf("%d. %s", moveNo, strings.TrimSpace(g.MovesSAN[i])))
        if i+1 < len(g.MovesSAN) {
            b.WriteString(" ")
            b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
        }
        b.WriteString(" ")
        moveNo++
    }
    b.WriteString(pgnResult)
    return b.String()
}

func pgnStart(fen string) (moveNo int, blackFirst bool) {
    fields := strings.Fields(fen)
    moveNo = 1
    if len(fields) >= 6 {
        fmt.Sscanf(fields[5], "%d", &moveNo)
    }
    return moveNo, len(fields) >= 2 && fields[1] == "b"
}

func sanitizePGN(s string) string {
    s = strings.ReplaceAll(s, "\\", " ")
    s = strings.ReplaceAll(s, "\"", "'")
    return strings.TrimSpace(s)
}
