package pvpchess

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/dgraph-io/badger/v4"
    "github.com/park285/Cheese-chess-arena/internal/obslog"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "go.uber.org/zap"
)

// BadgerStore is the embedded single-node store. Badger transactions detect
// write-write conflicts, which map to the same retry policy as the redis store.
type BadgerStore struct {
    db  *badger.DB
    ttl time.Duration
}

// OpenBadgerStore opens dir, or an in-memory database when dir is empty.
func OpenBadgerStore(dir string, ttl time.Duration) (*BadgerStore, error) {
    opts := badger.DefaultOptions(strings.TrimSpace(dir))
    if strings.TrimSpace(dir) == "" {
        opts = opts.WithInMemory(true)
    }
    opts.Logger = nil
    db, err := badger.Open(opts)
    if err != nil { return nil, fmt.Errorf("open badger: %w", err) }
    if ttl <= 0 { ttl = DefaultGameTTL }
    return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Close() error {
    if s == nil || s.db == nil { return nil }
    return s.db.Close()
}

func (s *BadgerStore) Create(_ context.Context, rec *chessdto.GameRecord) error {
    raw, err := json.Marshal(rec)
    if err != nil { return err }
    key := []byte(gameKey(rec.ID))
    return s.db.Update(func(txn *badger.Txn) error {
        if _, err := txn.Get(key); err == nil {
            return fmt.Errorf("game %s already exists", rec.ID)
        } else if !errors.Is(err, badger.ErrKeyNotFound) {
            return err
        }
        return txn.SetEntry(badger.NewEntry(key, raw).WithTTL(s.ttl))
    })
}

func (s *BadgerStore) Load(_ context.Context, id string) (*chessdto.GameRecord, error) {
    var rec chessdto.GameRecord
    err := s.db.View(func(txn *badger.Txn) error {
        item, err := txn.Get([]byte(gameKey(id)))
        if errors.Is(err, badger.ErrKeyNotFound) { return ErrGameNotFound }
        if err != nil { return err }
        return item.Value(func(val []byte) error {
            if err := json.Unmarshal(val, &rec); err != nil { return fmt.Errorf("%w: %v", ErrRecordCorrupt, err) }
            return nil
        })
    })
    if err != nil { return nil, err }
    return &rec, nil
}

func (s *BadgerStore) Update(ctx context.Context, id string, fn UpdateFunc) (*chessdto.GameRecord, error) {
    key := []byte(gameKey(id))
    for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
        if err := ctx.Err(); err != nil { return nil, err }
        var out *chessdto.GameRecord
        err := s.db.Update(func(txn *badger.Txn) error {
            item, err := txn.Get(key)
            if errors.Is(err, badger.ErrKeyNotFound) { return ErrGameNotFound }
            if err != nil { return err }
            var cur chessdto.GameRecord
            if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &cur) }); err != nil {
                return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
            }
            next, err := fn(&cur)
            if err != nil { return err }
            raw, err := json.Marshal(next)
            if err != nil { return err }
            if err := txn.SetEntry(badger.NewEntry(key, raw).WithTTL(s.ttl)); err != nil { return err }
            out = next
            return nil
        })
        if err == nil { return out, nil }
        if !errors.Is(err, badger.ErrConflict) { return nil, err }
        obslog.L().Debug("game_store_retry", zap.String("game_id", id), zap.Int("attempt", attempt+1), zap.String("backend", "badger"))
    }
    return nil, ErrConcurrentMove
}
