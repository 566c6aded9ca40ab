package pvpchess

import (
    "fmt"

    nchess "github.com/corentings/chess/v2"
    "github.com/park285/Cheese-chess-arena/internal/position"
)

// sanOf renders m, legal in the position written as fen, in standard algebraic notation.
func sanOf(fen string, m position.Move) (string, error) {
    opt, err := nchess.FEN(fen)
    if err != nil { return "", fmt.Errorf("notation: %w", err) }
    pos := nchess.NewGame(opt).Position()
    mv, err := nchess.UCINotation{}.Decode(pos, m.UCI())
    if err != nil { return "", fmt.Errorf("notation: %w", err) }
    return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
}
