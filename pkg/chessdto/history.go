package chessdto

import "time"

// ArchivedGame is a finished game as kept in the long-term archive.
type ArchivedGame struct {
	GameID        string        `json:"gameId"`
	Label         string        `json:"label,omitempty"`
	WhitePlayerID string        `json:"whitePlayerId"`
	BlackPlayerID string        `json:"blackPlayerId"`
	Result        string        `json:"result"`
	Method        string        `json:"method"`
	MovesUCI      []string      `json:"movesUci"`
	MovesSAN      []string      `json:"movesSan"`
	PGN           string        `json:"pgn"`
	StartedAt     time.Time     `json:"startedAt"`
	EndedAt       time.Time     `json:"endedAt"`
	Duration      time.Duration `json:"duration"`
}
