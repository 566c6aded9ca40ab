package domain

import "time"

// FinishedGame is the archive row for a completed game.
type FinishedGame struct {
	GameID        string
	Label         string
	WhitePlayerID string
	BlackPlayerID string
	Opponent      string
	Result        string
	ResultMethod  string
	MovesUCI      []string
	MovesSAN      []string
	PGN           string
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
}
