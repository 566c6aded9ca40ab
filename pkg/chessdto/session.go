package chessdto

import "time"

// Game lifecycle status values stored in GameRecord.Status.
const (
	StatusOngoing   = "ongoing"
	StatusCheckmate = "checkmate"
	StatusDraw      = "draw"
)

// CapturedPieces lists removed piece kinds ("q", "r", ...) keyed by the color of the
// captured piece, in capture order.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

// OpponentInfo marks one seat as computer controlled.
type OpponentInfo struct {
	Policy string `json:"policy"`
	Color  string `json:"color"`
}

// GameRecord is the persisted shape of a game. MovesUCI replayed from StartFEN (the
// standard position when empty) is authoritative; FEN and the SAN history are kept for
// readers that do not replay. StartPly counts the plies played before StartFEN, which
// is non-zero only for a replica rebased mid-game.
type GameRecord struct {
	ID             string         `json:"id"`
	Label          string         `json:"label,omitempty"`
	StartFEN       string         `json:"startFen,omitempty"`
	StartPly       int            `json:"startPly,omitempty"`
	FEN            string         `json:"fen"`
	MovesUCI       []string       `json:"movesUci"`
	MoveHistorySAN []string       `json:"moveHistorySan"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	Status         string         `json:"status"`
	Method         string         `json:"method,omitempty"`
	Winner         string         `json:"winner,omitempty"`
	Turn           string         `json:"turn"`
	InCheck        bool           `json:"inCheck,omitempty"`
	WhitePlayerID  string         `json:"whitePlayerId"`
	BlackPlayerID  string         `json:"blackPlayerId"`
	Opponent       *OpponentInfo  `json:"opponent,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Ply counts the half-moves played in the game.
func (r *GameRecord) Ply() int {
	if r == nil {
		return 0
	}
	return r.StartPly + len(r.MovesUCI)
}

// Finished reports whether the record is in a terminal state.
func (r *GameRecord) Finished() bool {
	return r != nil && r.Status != "" && r.Status != StatusOngoing
}

// StatusView is the client-facing rendering of the derived game status.
type StatusView struct {
	Turn              string      `json:"turn"`
	InCheck           bool        `json:"inCheck"`
	Terminal          string      `json:"terminal"`
	Winner            string      `json:"winner,omitempty"`
	AwaitingPromotion []MoveInput `json:"awaitingPromotion,omitempty"`
	Message           string      `json:"message,omitempty"`
}
