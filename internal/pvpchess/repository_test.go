package pvpchess

import (
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

func TestNewRepository_RequiresURL(t *testing.T) {
    if _, err := NewRepository("  "); err == nil { t.Fatalf("expected error for empty DATABASE_URL") }
}

func TestFinishedFromRecord_PGN(t *testing.T) {
    start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    rec := &chessdto.GameRecord{
        ID:             "g1",
        Label:          "quiet \"fox\"",
        MovesUCI:       []string{"f2f3", "e7e5", "g2g4", "d8h4"},
        MoveHistorySAN: []string{"f3", "e5", "g4", "Qh4#"},
        Status:         chessdto.StatusCheckmate,
        Method:         "checkmate",
        Winner:         "black",
        WhitePlayerID:  "u1",
        BlackPlayerID:  "u2",
        CreatedAt:      start,
        UpdatedAt:      start.Add(90 * time.Second),
    }
    g := FinishedFromRecord(rec)
    if g.Result != "black" || g.Duration != 90*time.Second {
        t.Fatalf("finished = %+v", g)
    }
    for _, want := range []string{
        "[Site \"quiet 'fox'\"]",
        "[Date \"2026.03.01\"]",
        "[Termination \"checkmate\"]",
        "1. f3 e5 2. g4 Qh4# 0-1",
    } {
        if !strings.Contains(g.PGN, want) { t.Fatalf("PGN lacks %q:\n%s", want, g.PGN) }
    }

    rec.Status, rec.Method, rec.Winner = chessdto.StatusDraw, "stalemate", ""
    if g := FinishedFromRecord(rec); g.Result != "draw" || !strings.HasSuffix(g.PGN, "1/2-1/2") {
        t.Fatalf("draw PGN = %s", g.PGN)
    }
}

func TestBuildPGN_BlackToMoveStart(t *testing.T) {
    rec := &chessdto.GameRecord{
        StartFEN:       "4k3/8/8/8/8/8/4P3/4K3 b - - 0 12",
        MoveHistorySAN: []string{"Kd7", "e4", "Ke6"},
    }
    pgn := FinishedFromRecord(rec).PGN
    if !strings.Contains(pgn, "[SetUp \"1\"]") || !strings.Contains(pgn, "12... Kd7 13. e4 Ke6 *") {
        t.Fatalf("PGN = %s", pgn)
    }
}

func TestAuditRecord(t *testing.T) {
    s := newTestSession(t)
    playUCI(t, s, "f2f3", "e7e5", "g2g4", "d8h4")
    rec := s.Snapshot()
    if err := AuditRecord(rec); err != nil { t.Fatalf("AuditRecord: %v", err) }

    rec.Method = "stalemate"
    if err := AuditRecord(rec); !errors.Is(err, ErrAuditMismatch) || !errors.Is(err, ErrRecordCorrupt) {
        t.Fatalf("method mismatch: err = %v", err)
    }
    rec.Method = "checkmate"
    rec.FEN = "8/8/4k3/8/8/3K4/8/8 w - - 0 1"
    if err := AuditRecord(rec); !errors.Is(err, ErrAuditMismatch) { t.Fatalf("fen mismatch: err = %v", err) }
}
