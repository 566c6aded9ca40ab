package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/Cheese-chess-arena/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-chess-arena/internal/msgcat"
	"github.com/park285/Cheese-chess-arena/internal/pvpchan"
	"github.com/park285/Cheese-chess-arena/internal/pvpchess"
	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) (*Server, *pvpchan.LocalChannel) {
	t.Helper()
	store, err := pvpchess.OpenBadgerStore("", 0)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	ch := pvpchan.NewLocalChannel()
	n := 0
	ids := func() string { n++; return fmt.Sprintf("game-%d", n) }
	m, err := pvpchess.NewManager(store, pvpchess.WithPublisher(ch), pvpchess.WithIDs(ids, func() string { return "calm-heron" }))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close(); _ = m.Close() })
	return NewServer(m, ch, chesspresenter.NewFormatter(cat)), ch
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) chessdto.DomainError {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestHandleCreateAndGame(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice","blackPlayerId":"bob"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	var created chessdto.CreateGameResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Game.ID != "game-1" || created.Game.Label != "calm-heron" {
		t.Fatalf("created = %+v", created.Game)
	}

	rr = do(t, h, http.MethodGet, "/api/games/game-1", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"whitePlayerId":"alice"`) {
		t.Fatalf("get status = %d body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}

	rr = do(t, h, http.MethodGet, "/api/games/nope", "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != chessdto.CodeGameNotFound {
		t.Fatalf("missing game: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice"}`)
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != chessdto.CodeInvalidPlayers {
		t.Fatalf("invalid players: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rr.Code)
	}
}

func TestHandleMove_StatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	if rr := do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice","blackPlayerId":"bob"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"playerId":"bob","move":{"from":"e7","to":"e5"}}`, http.StatusForbidden, chessdto.CodeNotYourTurn},
		{`{"playerId":"mallory","move":{"from":"e2","to":"e4"}}`, http.StatusForbidden, chessdto.CodeNotAPlayer},
		{`{"playerId":"alice","move":{"from":"e2","to":"e9"}}`, http.StatusBadRequest, chessdto.CodeMalformed},
		{`{"playerId":"alice","move":{"from":"e2","to":"e5"}}`, http.StatusConflict, chessdto.CodeIllegalMove},
	}
	for _, tc := range cases {
		rr := do(t, h, http.MethodPost, "/api/games/game-1/moves", tc.body)
		if rr.Code != tc.status || decodeError(t, rr).Code != tc.code {
			t.Fatalf("%s: status = %d body = %s", tc.body, rr.Code, rr.Body.String())
		}
	}

	rr := do(t, h, http.MethodPost, "/api/games/game-1/moves", `{"playerId":"alice","move":{"from":"e2","to":"e4"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move: %d %s", rr.Code, rr.Body.String())
	}
	var summary chessdto.MoveSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Applied == nil || summary.Applied.SAN != "e4" || summary.Status.Turn != "black" {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Status.Message != "White played e4.\nBlack to move." {
		t.Fatalf("message = %q", summary.Status.Message)
	}
}

func TestHandleFoolsMate_PGN(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice","blackPlayerId":"bob"}`)
	moves := []struct{ player, from, to string }{
		{"alice", "f2", "f3"}, {"bob", "e7", "e5"}, {"alice", "g2", "g4"}, {"bob", "d8", "h4"},
	}
	var last *httptest.ResponseRecorder
	for _, m := range moves {
		last = do(t, h, http.MethodPost, "/api/games/game-1/moves",
			fmt.Sprintf(`{"playerId":%q,"move":{"from":%q,"to":%q}}`, m.player, m.from, m.to))
		if last.Code != http.StatusOK {
			t.Fatalf("%s%s: %d %s", m.from, m.to, last.Code, last.Body.String())
		}
	}
	if !strings.Contains(last.Body.String(), "Checkmate. Black wins.") {
		t.Fatalf("final body = %s", last.Body.String())
	}
	rr := do(t, h, http.MethodPost, "/api/games/game-1/moves", `{"playerId":"alice","move":{"from":"a2","to":"a3"}}`)
	if rr.Code != http.StatusConflict || decodeError(t, rr).Code != chessdto.CodeGameOver {
		t.Fatalf("after mate: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/games/game-1/pgn", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "1. f3 e5 2. g4 Qh4# 0-1") {
		t.Fatalf("pgn: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-chess-pgn") {
		t.Fatalf("pgn content type = %q", ct)
	}
	// no archive configured
	if rr := do(t, h, http.MethodGet, "/api/games/game-1/archive", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("archive: %d", rr.Code)
	}
}

func TestHandlePromotionAndSelect(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice","blackPlayerId":"bob"}`)

	rr := do(t, h, http.MethodGet, "/api/games/game-1/select?player=alice&square=g1", "")
	var sel chessdto.SelectResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("select: %d %s", rr.Code, rr.Body.String())
	}
	if len(sel.Highlighted) != 2 {
		t.Fatalf("highlighted = %v", sel.Highlighted)
	}
	rr = do(t, h, http.MethodGet, "/api/games/game-1/select?player=bob&square=g8", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil || len(sel.Highlighted) != 0 {
		t.Fatalf("select off turn: %s", rr.Body.String())
	}

	// promotion endpoint rejects a plain move
	rr = do(t, h, http.MethodPost, "/api/games/game-1/promotion", `{"playerId":"alice","from":"e2","to":"e4","promotion":"q"}`)
	if rr.Code != http.StatusConflict || decodeError(t, rr).Code != chessdto.CodeNoPendingPromo {
		t.Fatalf("promotion on plain move: %d %s", rr.Code, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		chessdto.CodeMalformed:      http.StatusBadRequest,
		chessdto.CodeNotYourTurn:    http.StatusForbidden,
		chessdto.CodeGameNotFound:   http.StatusNotFound,
		chessdto.CodeConcurrentMove: http.StatusConflict,
		chessdto.CodeUnavailable:    http.StatusServiceUnavailable,
		chessdto.CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Fatalf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestStream_SnapshotThenMoves(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/games", `{"whitePlayerId":"alice","blackPlayerId":"bob"}`)
	do(t, h, http.MethodPost, "/api/games/game-1/moves", `{"playerId":"alice","move":{"from":"e2","to":"e4"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/games/game-1", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var ev chessdto.StreamEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if ev.Type != chessdto.EventSnapshot || ev.Game == nil || len(ev.Game.MoveHistorySAN) != 1 {
		t.Fatalf("snapshot = %+v", ev)
	}

	if rr := do(t, h, http.MethodPost, "/api/games/game-1/moves", `{"playerId":"bob","move":{"from":"c7","to":"c5"}}`); rr.Code != http.StatusOK {
		t.Fatalf("move: %d %s", rr.Code, rr.Body.String())
	}
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read move: %v", err)
	}
	if ev.Type != chessdto.EventMove || ev.Move == nil || ev.Move.SAN != "c5" || ev.Move.Ply != 2 {
		t.Fatalf("move event = %+v", ev)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func TestStream_UnknownGame(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv.Handler(), http.MethodGet, "/ws/games/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
