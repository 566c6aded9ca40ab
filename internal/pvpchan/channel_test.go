package pvpchan

import (
    "context"
    "errors"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "github.com/redis/go-redis/v9"
)

func channelsUnderTest(t *testing.T) map[string]Channel {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    local := NewLocalChannel()
    t.Cleanup(func() { _ = local.Close(); _ = rdb.Close(); mr.Close() })
    return map[string]Channel{"local": local, "redis": NewRedisChannel(rdb, 0)}
}

func recv(t *testing.T, sub Subscription) chessdto.MoveMessage {
    t.Helper()
    select {
    case m := <-sub.C():
        return m
    case <-time.After(2 * time.Second):
        t.Fatalf("no message delivered")
    }
    return chessdto.MoveMessage{}
}

func TestChannels_PublishSubscribeLast(t *testing.T) {
    ctx := context.Background()
    for name, ch := range channelsUnderTest(t) {
        sub, err := ch.Subscribe(ctx, "g1")
        if err != nil { t.Fatalf("%s Subscribe: %v", name, err) }
        other, err := ch.Subscribe(ctx, "g2")
        if err != nil { t.Fatalf("%s Subscribe g2: %v", name, err) }

        if m, err := ch.Last(ctx, "g1"); err != nil || m != nil { t.Fatalf("%s: Last before publish = %+v, %v", name, m, err) }

        first := chessdto.MoveMessage{GameID: "g1", Move: chessdto.MoveInput{From: "e2", To: "e4"}, SAN: "e4", Ply: 1}
        second := chessdto.MoveMessage{GameID: "g1", Move: chessdto.MoveInput{From: "e7", To: "e5"}, SAN: "e5", Ply: 2}
        if err := ch.Publish(ctx, first); err != nil { t.Fatalf("%s Publish: %v", name, err) }
        if err := ch.Publish(ctx, second); err != nil { t.Fatalf("%s Publish: %v", name, err) }

        if got := recv(t, sub); got.SAN != "e4" { t.Fatalf("%s: first = %+v", name, got) }
        if got := recv(t, sub); got.SAN != "e5" { t.Fatalf("%s: second = %+v", name, got) }
        select {
        case m := <-other.C():
            t.Fatalf("%s: message leaked to another game: %+v", name, m)
        default:
        }

        // a late redelivery of ply 1 must not replace the newer last message
        if err := ch.Publish(ctx, first); err != nil { t.Fatalf("%s Publish again: %v", name, err) }
        _ = recv(t, sub)
        last, err := ch.Last(ctx, "g1")
        if err != nil || last == nil || last.Ply != 2 { t.Fatalf("%s: Last = %+v, %v", name, last, err) }

        if err := sub.Close(); err != nil { t.Fatalf("%s Close: %v", name, err) }
        select {
        case <-sub.Done():
        case <-time.After(time.Second):
            t.Fatalf("%s: Done not closed", name)
        }
        _ = other.Close()
    }
}

func TestChannels_RejectEmptyGameID(t *testing.T) {
    ctx := context.Background()
    for name, ch := range channelsUnderTest(t) {
        if err := ch.Publish(ctx, chessdto.MoveMessage{}); !errors.Is(err, ErrMalformedMessage) { t.Fatalf("%s: err = %v", name, err) }
        if _, err := ch.Subscribe(ctx, " "); !errors.Is(err, ErrMalformedMessage) { t.Fatalf("%s: err = %v", name, err) }
    }
}

func TestLocalChannel_Close(t *testing.T) {
    ch := NewLocalChannel()
    sub, err := ch.Subscribe(context.Background(), "g1")
    if err != nil { t.Fatalf("Subscribe: %v", err) }
    if err := ch.Close(); err != nil { t.Fatalf("Close: %v", err) }
    select {
    case <-sub.Done():
    default:
        t.Fatalf("subscription still open after channel close")
    }
    if err := ch.Publish(context.Background(), chessdto.MoveMessage{GameID: "g1"}); !errors.Is(err, ErrClosed) {
        t.Fatalf("err = %v, want ErrClosed", err)
    }
}
