package insurance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTokenExpired is raised by a Transport when the upstream rejects the
// current auth token. Callers re-authenticate and replay the failed call
// exactly once; a second expiry surfaces as-is.
var ErrTokenExpired = errors.New("insurance: upstream token expired")

// StatusError is returned by transports when the upstream answered with a
// non-success HTTP status. Adapters use the code to classify the failure
// (429/5xx are transient, 4xx are not).
type StatusError struct {
	Operation string
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("insurance: %s returned status %d: %s", e.Operation, e.Code, e.Body)
}

// Retryable reports whether the status indicates a transient condition.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// Transport performs one authenticated request/response against a named
// upstream operation. Implementations own auth-token plumbing and must
// honor ctx cancellation; the engine never holds a lock across a call.
type Transport interface {
	Call(ctx context.Context, operation string, payload any) (json.RawMessage, error)
	Reauthenticate(ctx context.Context) error
}

// CallWithReauth invokes op on the transport and, if the token has expired,
// re-authenticates and replays the call once.
func CallWithReauth(ctx context.Context, t Transport, operation string, payload any) (json.RawMessage, error) {
	raw, err := t.Call(ctx, operation, payload)
	if err == nil || !errors.Is(err, ErrTokenExpired) {
		return raw, err
	}
	if err := t.Reauthenticate(ctx); err != nil {
		return nil, fmt.Errorf("insurance: reauthenticate before replaying %s: %w", operation, err)
	}
	return t.Call(ctx, operation, payload)
}
