package chessdto

// Error codes carried by DomainError. HTTP handlers map them to status codes.
const (
	CodeMalformed      = "malformed"
	CodeInvalidPlayers = "invalid_players"
	CodeNotAPlayer     = "not_a_player"
	CodeNotYourTurn    = "not_your_turn"
	CodeGameNotFound   = "game_not_found"
	CodeIllegalMove    = "illegal_move"
	CodeGameOver       = "game_over"
	CodeNoPendingPromo = "no_pending_promotion"
	CodeConcurrentMove = "concurrent_move"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}
