package chessdto

// MoveInput is the wire form of a move: squares in algebraic notation and an optional
// promotion letter. Color is optional and only used for de-duplication.
type MoveInput struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Color     string `json:"color,omitempty"`
}

// MoveMessage is published on the game channel after every applied move.
type MoveMessage struct {
	GameID       string    `json:"gameId"`
	Move         MoveInput `json:"move"`
	ResultingFEN string    `json:"resultingFen"`
	SAN          string    `json:"san"`
	Ply          int       `json:"ply"`
}

// MoveSummary is returned by the per-move application call.
type MoveSummary struct {
	Game     *GameRecord  `json:"game"`
	Applied  *MoveMessage `json:"applied,omitempty"`
	Computer *MoveMessage `json:"computer,omitempty"`
	Status   StatusView   `json:"status"`
}
