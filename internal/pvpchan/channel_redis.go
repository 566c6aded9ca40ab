package pvpchan

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "sync"
    "time"

    "github.com/park285/Cheese-chess-arena/internal/obslog"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

const (
    ttlLastMessage    = 24 * time.Hour
    maxPublishRetries = 3
)

// RedisChannel publishes move messages on pvp:chan:<id> and keeps the newest one under
// pvp:chan:<id>:last so late subscribers can catch up.
type RedisChannel struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewRedisChannel(rdb *redis.Client, ttl time.Duration) *RedisChannel {
    if ttl <= 0 { ttl = ttlLastMessage }
    return &RedisChannel{rdb: rdb, ttl: ttl}
}

func (c *RedisChannel) keyTopic(id string) string { return "pvp:chan:" + strings.TrimSpace(id) }
func (c *RedisChannel) keyLast(id string) string  { return c.keyTopic(id) + ":last" }

// Publish stores msg as the last message unless a higher ply is already recorded, then
// broadcasts it. Both happen in one MULTI.
func (c *RedisChannel) Publish(ctx context.Context, msg chessdto.MoveMessage) error {
    id := strings.TrimSpace(msg.GameID)
    if id == "" { return ErrMalformedMessage }
    raw, err := json.Marshal(msg)
    if err != nil { return err }
    lastKey := c.keyLast(id)
    txf := func(tx *redis.Tx) error {
        keep := true
        prev, err := tx.Get(ctx, lastKey).Bytes()
        switch {
        case err == redis.Nil:
        case err != nil:
            return err
        default:
            var p chessdto.MoveMessage
            if json.Unmarshal(prev, &p) == nil && p.Ply > msg.Ply { keep = false }
        }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            if keep { pipe.Set(ctx, lastKey, raw, c.ttl) }
            pipe.Publish(ctx, c.keyTopic(id), raw)
            return nil
        })
        return err
    }
    for attempt := 0; attempt < maxPublishRetries; attempt++ {
        err := c.rdb.Watch(ctx, txf, lastKey)
        if err == nil { return nil }
        if !errors.Is(err, redis.TxFailedErr) { return err }
        obslog.L().Debug("channel_publish_retry", zap.String("game_id", id), zap.Int("attempt", attempt+1))
    }
    // the broadcast still matters more than the last-message slot
    return c.rdb.Publish(ctx, c.keyTopic(id), raw).Err()
}

func (c *RedisChannel) Last(ctx context.Context, gameID string) (*chessdto.MoveMessage, error) {
    raw, err := c.rdb.Get(ctx, c.keyLast(gameID)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var m chessdto.MoveMessage
    if err := json.Unmarshal(raw, &m); err != nil { return nil, ErrMalformedMessage }
    return &m, nil
}

// Subscribe returns once the subscription is confirmed by the server. Payloads that do
// not decode are logged and skipped.
func (c *RedisChannel) Subscribe(ctx context.Context, gameID string) (Subscription, error) {
    id := strings.TrimSpace(gameID)
    if id == "" { return nil, ErrMalformedMessage }
    ps := c.rdb.Subscribe(ctx, c.keyTopic(id))
    if _, err := ps.Receive(ctx); err != nil {
        _ = ps.Close()
        return nil, err
    }
    s := &redisSub{ps: ps, ch: make(chan chessdto.MoveMessage, localBuffer), done: make(chan struct{})}
    go s.pump(id)
    return s, nil
}

type redisSub struct {
    ps   *redis.PubSub
    ch   chan chessdto.MoveMessage
    done chan struct{}
    once sync.Once
}

func (s *redisSub) C() <-chan chessdto.MoveMessage { return s.ch }
func (s *redisSub) Done() <-chan struct{}           { return s.done }

func (s *redisSub) Close() error {
    var err error
    s.once.Do(func() {
        err = s.ps.Close()
        close(s.done)
    })
    return err
}

func (s *redisSub) pump(id string) {
    defer func() { _ = s.Close() }()
    for m := range s.ps.Channel() {
        var msg chessdto.MoveMessage
        if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
            obslog.L().Warn("channel_bad_payload", zap.String("game_id", id), zap.Error(err))
            continue
        }
        select {
        case s.ch <- msg:
        case <-s.done:
            return
        }
    }
}
