package pvpchan

import (
    "context"
    "strings"
    "sync"

    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

const localBuffer = 64

// LocalChannel fans messages out in process. It backs single-node deployments and
// tests.
type LocalChannel struct {
    mu     sync.Mutex
    subs   map[string]map[*localSub]struct{}
    last   map[string]chessdto.MoveMessage
    closed bool
}

func NewLocalChannel() *LocalChannel {
    return &LocalChannel{subs: map[string]map[*localSub]struct{}{}, last: map[string]chessdto.MoveMessage{}}
}

type localSub struct {
    ch     chan chessdto.MoveMessage
    done   chan struct{}
    once   sync.Once
    parent *LocalChannel
    gameID string
}

func (s *localSub) C() <-chan chessdto.MoveMessage { return s.ch }
func (s *localSub) Done() <-chan struct{}           { return s.done }

func (s *localSub) Close() error {
    s.once.Do(func() {
        s.parent.mu.Lock()
        delete(s.parent.subs[s.gameID], s)
        s.parent.mu.Unlock()
        close(s.done)
    })
    return nil
}

func (c *LocalChannel) Publish(ctx context.Context, msg chessdto.MoveMessage) error {
    id := strings.TrimSpace(msg.GameID)
    if id == "" { return ErrMalformedMessage }
    c.mu.Lock()
    if c.closed { c.mu.Unlock(); return ErrClosed }
    if prev, ok := c.last[id]; !ok || prev.Ply <= msg.Ply { c.last[id] = msg }
    targets := make([]*localSub, 0, len(c.subs[id]))
    for s := range c.subs[id] {
        targets = append(targets, s)
    }
    c.mu.Unlock()

    for _, s := range targets {
        select {
        case s.ch <- msg:
        case <-s.done:
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return nil
}

// Subscribe registers a feed buffered for localBuffer messages.
func (c *LocalChannel) Subscribe(_ context.Context, gameID string) (Subscription, error) {
    id := strings.TrimSpace(gameID)
    if id == "" { return nil, ErrMalformedMessage }
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.closed { return nil, ErrClosed }
    s := &localSub{ch: make(chan chessdto.MoveMessage, localBuffer), done: make(chan struct{}), parent: c, gameID: id}
    if c.subs[id] == nil { c.subs[id] = map[*localSub]struct{}{} }
    c.subs[id][s] = struct{}{}
    return s, nil
}

func (c *LocalChannel) Last(_ context.Context, gameID string) (*chessdto.MoveMessage, error) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if m, ok := c.last[strings.TrimSpace(gameID)]; ok { return &m, nil }
    return nil, nil
}

// Close ends every subscription.
func (c *LocalChannel) Close() error {
    c.mu.Lock()
    c.closed = true
    var all []*localSub
    for _, set := range c.subs {
        for s := range set {
            all = append(all, s)
        }
    }
    c.mu.Unlock()
    for _, s := range all {
        _ = s.Close()
    }
    return nil
}
