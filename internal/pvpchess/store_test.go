package pvpchess

import (
    "context"
    "errors"
    "testing"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "github.com/redis/go-redis/v9"
)

func storesUnderTest(t *testing.T) map[string]Store {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    rs := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)

    bs, err := OpenBadgerStore("", 0)
    if err != nil { t.Fatalf("OpenBadgerStore: %v", err) }
    t.Cleanup(func() { _ = rs.Close(); _ = bs.Close() })
    return map[string]Store{"redis": rs, "badger": bs}
}

func TestStores_CreateLoadUpdate(t *testing.T) {
    ctx := context.Background()
    for name, st := range storesUnderTest(t) {
        rec := &chessdto.GameRecord{ID: "g1", FEN: "x", Status: chessdto.StatusOngoing, WhitePlayerID: "a", BlackPlayerID: "b"}
        if err := st.Create(ctx, rec); err != nil { t.Fatalf("%s Create: %v", name, err) }
        if err := st.Create(ctx, rec); err == nil { t.Fatalf("%s: duplicate create succeeded", name) }

        got, err := st.Load(ctx, "g1")
        if err != nil || got.WhitePlayerID != "a" { t.Fatalf("%s Load: %+v, %v", name, got, err) }
        if _, err := st.Load(ctx, "g2"); !errors.Is(err, ErrGameNotFound) { t.Fatalf("%s: err = %v", name, err) }

        out, err := st.Update(ctx, "g1", func(cur *chessdto.GameRecord) (*chessdto.GameRecord, error) {
            cur.MovesUCI = append(cur.MovesUCI, "e2e4")
            return cur, nil
        })
        if err != nil || len(out.MovesUCI) != 1 { t.Fatalf("%s Update: %+v, %v", name, out, err) }
        got, _ = st.Load(ctx, "g1")
        if len(got.MovesUCI) != 1 { t.Fatalf("%s: update not persisted", name) }

        boom := errors.New("boom")
        if _, err := st.Update(ctx, "g1", func(*chessdto.GameRecord) (*chessdto.GameRecord, error) { return nil, boom }); !errors.Is(err, boom) {
            t.Fatalf("%s: err = %v, want boom", name, err)
        }
        if _, err := st.Update(ctx, "g2", func(cur *chessdto.GameRecord) (*chessdto.GameRecord, error) { return cur, nil }); !errors.Is(err, ErrGameNotFound) {
            t.Fatalf("%s: update of missing game: err = %v", name, err)
        }
    }
}

func TestRedisStore_RetriesLostRace(t *testing.T) {
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    defer mr.Close()
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    st := NewRedisStoreFromClient(rdb, 0)
    defer st.Close()
    ctx := context.Background()
    if err := st.Create(ctx, &chessdto.GameRecord{ID: "race"}); err != nil { t.Fatalf("Create: %v", err) }

    calls := 0
    _, err = st.Update(ctx, "race", func(cur *chessdto.GameRecord) (*chessdto.GameRecord, error) {
        calls++
        // a competing writer touches the watched key on every attempt
        if err := mr.Set(gameKey("race"), `{"id":"race","movesUci":["e2e4"]}`); err != nil { return nil, err }
        return cur, nil
    })
    if !errors.Is(err, ErrConcurrentMove) || calls != maxUpdateAttempts {
        t.Fatalf("err = %v calls = %d", err, calls)
    }
}

func TestParseRedisURL(t *testing.T) {
    opts, err := ParseRedisURL("redis://:secret@localhost:6380/2")
    if err != nil { t.Fatalf("ParseRedisURL: %v", err) }
    if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 { t.Fatalf("opts = %+v", opts) }
    if _, err := ParseRedisURL("http://localhost"); err == nil { t.Fatalf("expected scheme error") }
}
