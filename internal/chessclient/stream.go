package chessclient

import (
    "context"
    "net/http"
    "net/url"
    "strings"
    "sync"
    "time"

    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
    "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"
)

type StreamState int

const (
    StreamDisconnected StreamState = iota
    StreamConnecting
    StreamConnected
    StreamReconnecting
    StreamFailed
)

func (s StreamState) String() string {
    switch s {
    case StreamConnecting:
        return "connecting"
    case StreamConnected:
        return "connected"
    case StreamReconnecting:
        return "reconnecting"
    case StreamFailed:
        return "failed"
    default:
        return "disconnected"
    }
}

type EventCallback func(ev *chessdto.StreamEvent)

type StateCallback func(state StreamState)

type callbackEntry struct {
    id       int
    callback EventCallback
}

type stateCallbackEntry struct {
    id       int
    callback StateCallback
}

// Stream follows /ws/games/{id}. Every (re)connect starts with a snapshot event.
type Stream struct {
    wsURL string

    conn   *websocket.Conn
    connM  sync.Mutex
    state  StreamState
    stateM sync.RWMutex

    evCbs    []callbackEntry
    stateCbs []stateCallbackEntry
    nextID   int
    cbM      sync.RWMutex

    maxReconnectAttempts int
    pingInterval         time.Duration

    stopCh   chan struct{}
    stopOnce sync.Once
    wg       sync.WaitGroup

    rootCtx    context.Context
    rootCancel context.CancelFunc

    headerProvider HeaderProvider
}

// StreamURL turns an http(s) base URL into the websocket URL of gameID.
func StreamURL(baseURL, gameID string) string {
    u := strings.TrimRight(baseURL, "/")
    switch {
    case strings.HasPrefix(u, "https://"):
        u = "wss://" + strings.TrimPrefix(u, "https://")
    case strings.HasPrefix(u, "http://"):
        u = "ws://" + strings.TrimPrefix(u, "http://")
    }
    return u + "/ws/games/" + url.PathEscape(strings.TrimSpace(gameID))
}

func NewStream(wsURL string, maxReconnectAttempts int) *Stream {
    return &Stream{
        wsURL:                wsURL,
        state:                StreamDisconnected,
        maxReconnectAttempts: maxReconnectAttempts,
        pingInterval:         30 * time.Second,
        stopCh:               make(chan struct{}),
    }
}

func (s *Stream) Connect(ctx context.Context) error {
    s.stateM.Lock()
    if s.state == StreamConnected || s.state == StreamConnecting {
        s.stateM.Unlock()
        return nil
    }
    s.stateM.Unlock()

    if s.rootCtx == nil { s.rootCtx, s.rootCancel = context.WithCancel(context.Background()) }
    s.setState(StreamConnecting)

    conn, err := s.dial(ctx)
    if err != nil {
        s.setState(StreamFailed)
        s.scheduleReconnect()
        return err
    }
    s.attach(conn)
    return nil
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
    dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{
        CompressionMode: websocket.CompressionNoContextTakeover,
        HTTPHeader:      s.buildHeaders(),
    })
    return conn, err
}

func (s *Stream) attach(conn *websocket.Conn) {
    s.connM.Lock()
    s.conn = conn
    s.connM.Unlock()
    s.setState(StreamConnected)
    s.wg.Add(2)
    go s.listen(conn)
    go s.pingLoop(conn)
}

func (s *Stream) listen(conn *websocket.Conn) {
    defer s.wg.Done()
    for {
        var ev chessdto.StreamEvent
        if err := wsjson.Read(s.rootCtx, conn, &ev); err != nil {
            if s.isStopping() { return }
            if s.detach(conn, websocket.StatusGoingAway, "reconnect") {
                s.setState(StreamDisconnected)
                s.scheduleReconnect()
            }
            return
        }

        s.cbM.RLock()
        callbacks := make([]callbackEntry, len(s.evCbs))
        copy(callbacks, s.evCbs)
        s.cbM.RUnlock()
        for _, entry := range callbacks {
            if entry.callback != nil { entry.callback(&ev) }
        }
    }
}

func (s *Stream) pingLoop(conn *websocket.Conn) {
    defer s.wg.Done()
    t := time.NewTicker(s.pingInterval)
    defer t.Stop()
    failures := 0
    for {
        select {
        case <-s.stopCh:
            return
        case <-t.C:
            if !s.current(conn) { return }
            ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
            err := conn.Ping(ctx)
            cancel()
            if err == nil {
                failures = 0
                continue
            }
            failures++
            if failures >= 2 {
                if s.isStopping() { return }
                // listen observes the closed conn and schedules the reconnect
                _ = conn.Close(websocket.StatusGoingAway, "ping failure")
                return
            }
        }
    }
}

func (s *Stream) scheduleReconnect() {
    if s.maxReconnectAttempts <= 0 {
        s.setState(StreamFailed)
        return
    }
    s.setState(StreamReconnecting)

    go func() {
        for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
            select {
            case <-s.stopCh:
                return
            case <-time.After(backoffDuration(attempt)):
            }
            conn, err := s.dial(s.rootCtx)
            if err != nil { continue }
            s.attach(conn)
            return
        }
        s.setState(StreamFailed)
    }()
}

func (s *Stream) OnEvent(cb EventCallback) int {
    s.cbM.Lock()
    defer s.cbM.Unlock()
    s.nextID++
    s.evCbs = append(s.evCbs, callbackEntry{id: s.nextID, callback: cb})
    return s.nextID
}

func (s *Stream) RemoveEventCallback(id int) {
    s.cbM.Lock()
    defer s.cbM.Unlock()
    for i, cb := range s.evCbs {
        if cb.id == id {
            s.evCbs = append(s.evCbs[:i], s.evCbs[i+1:]...)
            break
        }
    }
}

func (s *Stream) OnStateChange(cb StateCallback) int {
    s.cbM.Lock()
    defer s.cbM.Unlock()
    s.nextID++
    s.stateCbs = append(s.stateCbs, stateCallbackEntry{id: s.nextID, callback: cb})
    return s.nextID
}

func (s *Stream) State() StreamState {
    s.stateM.RLock()
    defer s.stateM.RUnlock()
    return s.state
}

func (s *Stream) setState(state StreamState) {
    s.stateM.Lock()
    s.state = state
    s.stateM.Unlock()

    s.cbM.RLock()
    callbacks := make([]stateCallbackEntry, len(s.stateCbs))
    copy(callbacks, s.stateCbs)
    s.cbM.RUnlock()
    for _, entry := range callbacks {
        if entry.callback != nil { entry.callback(state) }
    }
}

func (s *Stream) Close(ctx context.Context) error {
    s.stopOnce.Do(func() { close(s.stopCh) })
    s.connM.Lock()
    conn := s.conn
    s.conn = nil
    s.connM.Unlock()
    if conn != nil { _ = conn.Close(websocket.StatusNormalClosure, "close") }

    done := make(chan struct{})
    go func() {
        s.wg.Wait()
        close(done)
    }()

    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-done:
        if s.rootCancel != nil { s.rootCancel() }
        s.setState(StreamDisconnected)
        return nil
    }
}

// detach closes conn if it is still current and reports whether it was.
func (s *Stream) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) bool {
    s.connM.Lock()
    cur := s.conn == conn
    if cur { s.conn = nil }
    s.connM.Unlock()
    _ = conn.Close(code, reason)
    return cur
}

func (s *Stream) current(conn *websocket.Conn) bool {
    s.connM.Lock()
    defer s.connM.Unlock()
    return s.conn == conn
}

func (s *Stream) isStopping() bool {
    select {
    case <-s.stopCh:
        return true
    default:
        return false
    }
}

// SetHeaderProvider allows injecting headers into the handshake.
func (s *Stream) SetHeaderProvider(h HeaderProvider) {
    s.headerProvider = h
}

func (s *Stream) buildHeaders() http.Header {
    hdr := http.Header{}
    if s.headerProvider == nil { return hdr }
    for k, v := range s.headerProvider() {
        if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" { continue }
        hdr.Set(k, v)
    }
    return hdr
}
