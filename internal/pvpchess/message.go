package pvpchess

import (
    "fmt"
    "strings"

    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// ToMoveInput converts an engine move to its wire form.
func ToMoveInput(m position.Move) chessdto.MoveInput {
    return chessdto.MoveInput{
        From:      m.From.String(),
        To:        m.To.String(),
        Promotion: m.Promotion.String(),
        Color:     m.Color.Name(),
    }
}

// ParseMoveInput validates the wire form. Piece, captured and flag stay unset; the
// engine fills them on apply.
func ParseMoveInput(in chessdto.MoveInput) (position.Move, error) {
    from, err := position.ParseSquare(in.From)
    if err != nil { return position.Move{}, fmt.Errorf("%w: %v", ErrMalformedMove, err) }
    to, err := position.ParseSquare(in.To)
    if err != nil { return position.Move{}, fmt.Errorf("%w: %v", ErrMalformedMove, err) }
    promo, err := position.ParsePieceKind(in.Promotion)
    if err != nil || promo == position.Pawn || promo == position.King {
        return position.Move{}, fmt.Errorf("%w: promotion %q", ErrMalformedMove, in.Promotion)
    }
    color, err := position.ParseColor(in.Color)
    if err != nil { return position.Move{}, fmt.Errorf("%w: %v", ErrMalformedMove, err) }
    return position.Move{From: from, To: to, Promotion: promo, Color: color}, nil
}

// NewMoveMessage builds the channel message for an applied result. It returns false
// when r carries no applied move.
func NewMoveMessage(gameID string, r MoveResult) (chessdto.MoveMessage, bool) {
    if r.Applied == nil { return chessdto.MoveMessage{}, false }
    return chessdto.MoveMessage{
        GameID:       strings.TrimSpace(gameID),
        Move:         ToMoveInput(*r.Applied),
        ResultingFEN: r.FEN,
        SAN:          r.SAN,
        Ply:          r.Ply,
    }, true
}

// StatusView renders a GameStatus for clients.
func StatusView(st GameStatus) chessdto.StatusView {
    v := chessdto.StatusView{
        Turn:     st.Turn.Name(),
        InCheck:  st.InCheck,
        Terminal: string(st.Terminal),
        Winner:   st.Winner.Name(),
    }
    for _, m := range st.AwaitingPromotion {
        v.AwaitingPromotion = append(v.AwaitingPromotion, ToMoveInput(m))
    }
    return v
}
