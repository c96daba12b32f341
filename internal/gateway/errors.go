package gateway

import (
	"strings"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// classify maps a raw exchange error string into the taxonomy the rest of
// the gateway branches on, the same string-matching approach the teacher
// uses for retryable-error detection, extended to the full kind set.
func classify(op, symbol string, err error) *domain.ExchangeError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "no position") || strings.Contains(msg, "position does not exist"):
		return domain.NewExchangeError(domain.ErrKindNoPositionToClose, op, symbol, err)

	case strings.Contains(msg, "position side does not match") || strings.Contains(msg, "position mode"):
		return domain.NewExchangeError(domain.ErrKindPositionModeMismatch, op, symbol, err)

	case strings.Contains(msg, "margin is insufficient") && strings.Contains(msg, "reduce"):
		return domain.NewExchangeError(domain.ErrKindReduceOnlyConflict, op, symbol, err)

	case strings.Contains(msg, "quantity") || strings.Contains(msg, "notional") || strings.Contains(msg, "lot size"):
		return domain.NewExchangeError(domain.ErrKindQuantityViolation, op, symbol, err)

	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "504") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "service unavailable"):
		return domain.NewExchangeError(domain.ErrKindTransient, op, symbol, err)

	case strings.Contains(msg, "signature") || strings.Contains(msg, "permission") || strings.Contains(msg, "invalid api-key"):
		return domain.NewExchangeError(domain.ErrKindFatal, op, symbol, err)

	default:
		return domain.NewExchangeError(domain.ErrKindFatal, op, symbol, err)
	}
}
