package pvpchess

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/park285/Cheese-chess-arena/internal/obslog"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisStore keeps one JSON record per game under pvp:game:<id> and guards updates
// with WATCH/MULTI.
type RedisStore struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewRedisStore dials redisURL and pings it.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for redis game store")
    }
    opts, err := ParseRedisURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(context.Background()).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewRedisStoreFromClient(rdb, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client. The store owns it afterwards.
func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
    if ttl <= 0 { ttl = DefaultGameTTL }
    return &RedisStore{rdb: rdb, ttl: ttl}
}

// Client exposes the underlying client so the move channel can share it.
func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

func (s *RedisStore) Create(ctx context.Context, rec *chessdto.GameRecord) error {
    raw, err := json.Marshal(rec)
    if err != nil { return err }
    ok, err := s.rdb.SetNX(ctx, gameKey(rec.ID), raw, s.ttl).Result()
    if err != nil { return err }
    if !ok { return fmt.Errorf("game %s already exists", rec.ID) }
    return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*chessdto.GameRecord, error) {
    raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
    if err == redis.Nil { return nil, ErrGameNotFound }
    if err != nil { return nil, err }
    var rec chessdto.GameRecord
    if err := json.Unmarshal(raw, &rec); err != nil { return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
    return &rec, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*chessdto.GameRecord, error) {
    key := gameKey(id)
    var out *chessdto.GameRecord
    txf := func(tx *redis.Tx) error {
        raw, err := tx.Get(ctx, key).Bytes()
        if err == redis.Nil { return ErrGameNotFound }
        if err != nil { return err }
        var cur chessdto.GameRecord
        if jerr := json.Unmarshal(raw, &cur); jerr != nil { return fmt.Errorf("%w: %v", ErrRecordCorrupt, jerr) }
        next, err := fn(&cur)
        if err != nil { return err }
        newRaw, err := json.Marshal(next)
        if err != nil { return err }
        pipe := tx.TxPipeline()
        pipe.Set(ctx, key, newRaw, s.ttl)
        if _, err := pipe.Exec(ctx); err != nil { return err }
        out = next
        return nil
    }
    for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
        err := s.rdb.Watch(ctx, txf, key)
        if err == nil { return out, nil }
        if !errors.Is(err, redis.TxFailedErr) { return nil, err }
        obslog.L().Debug("game_store_retry", zap.String("game_id", id), zap.Int("attempt", attempt+1))
    }
    return nil, ErrConcurrentMove
}

// ParseRedisURL converts redis://[:password@]host:port/db into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(raw)
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" { if n, err := strconv.Atoi(p); err == nil { db = n } }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
