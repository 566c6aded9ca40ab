package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-chess-arena/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-chess-arena/internal/pvpchan"
	"github.com/park285/Cheese-chess-arena/internal/pvpchess"
	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
	"go.uber.org/zap"
)

const (
	maxJSONBodyBytes int64 = 1 << 16
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

// Games is the part of pvpchess.Manager the HTTP layer calls.
type Games interface {
	CreateGame(ctx context.Context, req chessdto.CreateGameRequest) (*chessdto.CreateGameResponse, error)
	Game(ctx context.Context, id string) (*chessdto.GameRecord, error)
	Select(ctx context.Context, id, playerID, square string) (*chessdto.SelectResponse, error)
	ApplyMove(ctx context.Context, req chessdto.MoveRequest) (*chessdto.MoveSummary, error)
	Promote(ctx context.Context, req chessdto.PromotionRequest) (*chessdto.MoveSummary, error)
	PGN(ctx context.Context, id string) (string, error)
	Archived(ctx context.Context, id string) (*chessdto.ArchivedGame, error)
}

var _ Games = (*pvpchess.Manager)(nil)

// Server exposes game creation, the per-move application call and the live stream.
type Server struct {
	games   Games
	channel pvpchan.Channel
	text    *chesspresenter.Formatter
	log     *zap.Logger
	origins []string

	srvMu sync.Mutex
	srv   *http.Server
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOriginPatterns allows websocket upgrades from other hosts.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

func NewServer(games Games, ch pvpchan.Channel, text *chesspresenter.Formatter, opts ...Option) *Server {
	s := &Server{games: games, channel: ch, text: text, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen serves until Close.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.log.Info("http_listen", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the server down gracefully.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.withJSON(s.handleCreate))
	mux.HandleFunc("GET /api/games/{id}", s.withJSON(s.handleGame))
	mux.HandleFunc("GET /api/games/{id}/select", s.withJSON(s.handleSelect))
	mux.HandleFunc("POST /api/games/{id}/moves", s.withJSON(s.handleMove))
	mux.HandleFunc("POST /api/games/{id}/promotion", s.withJSON(s.handlePromotion))
	mux.HandleFunc("GET /api/games/{id}/pgn", s.handlePGN)
	mux.HandleFunc("GET /api/games/{id}/archive", s.withJSON(s.handleArchive))
	mux.HandleFunc("GET /ws/games/{id}", s.handleStream)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Error chessdto.DomainError `json:"error"`
}

// writeError renders err as a DomainError with the matching HTTP status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	de := s.text.Error(err)
	status := StatusFor(de.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("http_error", zap.String("path", r.URL.Path), zap.String("code", de.Code), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: de})
}

func (s *Server) writeBadBody(w http.ResponseWriter, err error) {
	if isBodyTooLarge(err) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: chessdto.DomainError{Code: chessdto.CodeMalformed, Message: "request too large"}})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: chessdto.DomainError{Code: chessdto.CodeMalformed, Message: "invalid json"}})
}

// StatusFor maps a DomainError code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case chessdto.CodeMalformed, chessdto.CodeInvalidPlayers:
		return http.StatusBadRequest
	case chessdto.CodeNotAPlayer, chessdto.CodeNotYourTurn:
		return http.StatusForbidden
	case chessdto.CodeGameNotFound:
		return http.StatusNotFound
	case chessdto.CodeIllegalMove, chessdto.CodeGameOver, chessdto.CodeNoPendingPromo, chessdto.CodeConcurrentMove:
		return http.StatusConflict
	case chessdto.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("X-Content-Type-Options", "nosniff")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ---- API ----

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req chessdto.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadBody(w, err)
		return
	}
	resp, err := s.games.CreateGame(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	rec, err := s.games.Game(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := s.games.Select(r.Context(), r.PathValue("id"), q.Get("player"), q.Get("square"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req chessdto.MoveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadBody(w, err)
		return
	}
	req.GameID = r.PathValue("id")
	summary, err := s.games.ApplyMove(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary.Status.Message = s.text.Move(summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePromotion(w http.ResponseWriter, r *http.Request) {
	var req chessdto.PromotionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadBody(w, err)
		return
	}
	req.GameID = r.PathValue("id")
	summary, err := s.games.Promote(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary.Status.Message = s.text.Move(summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	applyAPISecurityHeaders(w.Header())
	pgn, err := s.games.PGN(r.Context(), r.PathValue("id"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.TrimRight(pgn, "\n") + "\n"))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.Archived(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g, "summary": s.text.Result(g)})
}
