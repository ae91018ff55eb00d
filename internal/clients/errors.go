package clients

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDataUnavailable marks per-symbol data that is missing at the source.
// Callers skip the symbol for the current phase instead of failing the run.
var ErrDataUnavailable = errors.New("data unavailable")

// GatewayError is a network or API failure while talking to the broker. For
// decision purposes it is treated like ErrDataUnavailable; the cause is kept
// for diagnostics.
type GatewayError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the transport cause.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether the error should degrade a single symbol to
// "skip" rather than abort the phase.
func IsRecoverable(err error) bool {
	if errors.Is(err, ErrDataUnavailable) {
		return true
	}
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}
