package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 5 * time.Second

// handleStream sends a snapshot of the game followed by every later move message. The
// subscription is opened before the snapshot is read so no ply falls in between.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	sub, err := s.channel.Subscribe(ctx, id)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, r, err)
		return
	}
	defer sub.Close()

	rec, err := s.games.Game(ctx, id)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Debug("stream_accept_error", zap.String("game_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// the client only listens; CloseRead handles control frames and cancels on close
	ctx = conn.CloseRead(ctx)

	if err := s.writeEvent(ctx, conn, chessdto.StreamEvent{Type: chessdto.EventSnapshot, Game: rec}); err != nil {
		return
	}
	s.log.Debug("stream_open", zap.String("game_id", id), zap.Int("ply", rec.Ply()))

	ply := rec.Ply()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			_ = conn.Close(websocket.StatusGoingAway, "channel closed")
			return
		case msg := <-sub.C():
			if msg.Ply <= ply {
				continue
			}
			ply = msg.Ply
			m := msg
			if err := s.writeEvent(ctx, conn, chessdto.StreamEvent{Type: chessdto.EventMove, Move: &m}); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.log.Debug("stream_write_error", zap.String("game_id", id), zap.Error(err))
				}
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev chessdto.StreamEvent) error {
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}
