package chessdto

// CreateGameRequest seats two players. When Opponent is set, the computer takes the
// seat of Opponent.Color and the other seat's ID must be supplied.
type CreateGameRequest struct {
	WhitePlayerID string        `json:"whitePlayerId"`
	BlackPlayerID string        `json:"blackPlayerId"`
	Opponent      *OpponentInfo `json:"opponent,omitempty"`
}

type CreateGameResponse struct {
	Game    *GameRecord  `json:"game"`
	Opening *MoveMessage `json:"opening,omitempty"`
}

type MoveRequest struct {
	GameID   string    `json:"gameId"`
	PlayerID string    `json:"playerId"`
	Move     MoveInput `json:"move"`
}

type PromotionRequest struct {
	GameID    string `json:"gameId"`
	PlayerID  string `json:"playerId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

type SelectResponse struct {
	Square      string   `json:"square"`
	Highlighted []string `json:"highlighted"`
	Message     string   `json:"message,omitempty"`
}

// Stream event types sent over the game websocket.
const (
	EventSnapshot = "snapshot"
	EventMove     = "move"
)

// StreamEvent is one websocket frame: a snapshot first, then moves in order.
type StreamEvent struct {
	Type string       `json:"type"`
	Game *GameRecord  `json:"game,omitempty"`
	Move *MoveMessage `json:"move,omitempty"`
}
