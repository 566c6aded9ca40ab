package pvpchess

import (
    "fmt"
    "strings"

    nchess "github.com/corentings/chess/v2"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// ErrAuditMismatch is returned when an independent replay disagrees with a record.
var ErrAuditMismatch = fmt.Errorf("%w: independent replay disagrees", ErrRecordCorrupt)

// AuditRecord replays rec.MovesUCI with corentings/chess and checks placement, side to
// move and, for checkmate and stalemate, the outcome. It runs before a game is archived.
func AuditRecord(rec *chessdto.GameRecord) error {
    if rec == nil { return fmt.Errorf("%w: nil record", ErrAuditMismatch) }
    var opts []func(*nchess.Game)
    if strings.TrimSpace(rec.StartFEN) != "" {
        opt, err := nchess.FEN(rec.StartFEN)
        if err != nil { return fmt.Errorf("%w: start fen: %v", ErrAuditMismatch, err) }
        opts = append(opts, opt)
    }
    game := nchess.NewGame(opts...)
    for i, mv := range rec.MovesUCI {
        if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
            return fmt.Errorf("%w: move %d %s: %v", ErrAuditMismatch, i+1, mv, err)
        }
    }
    got := strings.Fields(game.FEN())
    want := strings.Fields(rec.FEN)
    if len(got) < 2 || len(want) < 2 || got[0] != want[0] || got[1] != want[1] {
        return fmt.Errorf("%w: replay %q, record %q", ErrAuditMismatch, game.FEN(), rec.FEN)
    }
    switch rec.Method {
    case string(TerminalCheckmate):
        if game.Method() != nchess.Checkmate {
            return fmt.Errorf("%w: record says checkmate, replay says %s", ErrAuditMismatch, strings.ToLower(game.Method().String()))
        }
    case string(TerminalStalemate):
        if game.Method() != nchess.Stalemate {
            return fmt.Errorf("%w: record says stalemate, replay says %s", ErrAuditMismatch, strings.ToLower(game.Method().String()))
        }
    }
    return nil
}
