package chesspresenter

import (
    "context"
    "errors"
    "net"
    "strings"

    "github.com/park285/Cheese-chess-arena/internal/position"
    "github.com/park285/Cheese-chess-arena/internal/pvpchan"
    "github.com/park285/Cheese-chess-arena/internal/pvpchess"
    "github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

// ErrorCode classifies err into a chessdto error code and reports whether a retry may
// succeed.
func ErrorCode(err error) (code string, retryable bool) {
    var netErr net.Error
    switch {
    case err == nil:
        return "", false
    case errors.Is(err, pvpchess.ErrMalformedMove), errors.Is(err, pvpchan.ErrMalformedMessage), errors.Is(err, position.ErrInvalidFEN):
        return chessdto.CodeMalformed, false
    case errors.Is(err, pvpchess.ErrInvalidPlayers):
        return chessdto.CodeInvalidPlayers, false
    case errors.Is(err, pvpchess.ErrNotAPlayer):
        return chessdto.CodeNotAPlayer, false
    case errors.Is(err, pvpchess.ErrNotYourTurn):
        return chessdto.CodeNotYourTurn, false
    case errors.Is(err, pvpchess.ErrGameNotFound):
        return chessdto.CodeGameNotFound, false
    case errors.Is(err, position.ErrIllegalMove):
        return chessdto.CodeIllegalMove, false
    case errors.Is(err, pvpchess.ErrGameOver):
        return chessdto.CodeGameOver, false
    case errors.Is(err, pvpchess.ErrNoPendingPromotion):
        return chessdto.CodeNoPendingPromo, false
    case errors.Is(err, pvpchess.ErrConcurrentMove):
        return chessdto.CodeConcurrentMove, true
    case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
        return chessdto.CodeUnavailable, true
    default:
        return chessdto.CodeInternal, false
    }
}

// Error converts err into the outward DomainError with a catalog message. Malformed
// input keeps its detail; internal causes are not exposed.
func (f *Formatter) Error(err error) chessdto.DomainError {
    code, retry := ErrorCode(err)
    if code == "" { return chessdto.DomainError{} }
    var detail string
    if code == chessdto.CodeMalformed {
        detail = err.Error()
        if i := strings.Index(detail, ": "); i >= 0 { detail = detail[i+2:] }
    }
    msg := f.render("errors."+code, map[string]any{"Detail": detail}, strings.ReplaceAll(code, "_", " "))
    return chessdto.DomainError{Code: code, Message: msg, Retryable: retry}
}
