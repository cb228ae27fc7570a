package dlob

import "fmt"

// ErrKind enumerates the error taxonomy from spec.md §7: every failure the
// engine can encounter while applying updates or answering queries falls
// into exactly one of these, so metrics, logs, and callers all classify
// failures the same way.
type ErrKind uint8

const (
	// ErrClassification covers an order whose fields fail Order.Validate,
	// or that Classify cannot place in any bucket.
	ErrClassification ErrKind = iota
	// ErrStaleUpdate covers an account update for a slot older than the
	// last one already applied for that account.
	ErrStaleUpdate
	// ErrDeserialize covers an account payload that fails to decode
	// (wrong discriminator, short buffer, malformed field).
	ErrDeserialize
	// ErrFfi covers a failure returned by the ffi package's native math.
	ErrFfi
	// ErrTransport covers a websocket/RPC failure reaching the chain.
	ErrTransport
	// ErrUnsubscribedAccess covers a query against a market or account
	// the engine has not (or not yet) subscribed to.
	ErrUnsubscribedAccess
	// ErrNotFound covers a query for an order id that does not exist in
	// the book right now.
	ErrNotFound
)

func (k ErrKind) String() string {
	switch k {
	case ErrClassification:
		return "classification_error"
	case ErrStaleUpdate:
		return "stale_update"
	case ErrDeserialize:
		return "deserialize_error"
	case ErrFfi:
		return "ffi_error"
	case ErrTransport:
		return "transport_error"
	case ErrUnsubscribedAccess:
		return "unsubscribed_access"
	case ErrNotFound:
		return "not_found"
	default:
		return "unknown_error"
	}
}

// Error is the concrete error type every DLOB operation returns. Kind lets
// callers (and internal/metrics) branch on the taxonomy without string
// matching; Err carries the underlying cause when there is one.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
