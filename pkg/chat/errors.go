package chat

import "errors"

var (
	// ErrBusy is returned when a question is submitted while a session is
	// still outstanding. Sessions are single-flight; the caller must wait
	// for settlement or failure before resubmitting.
	ErrBusy = errors.New("a question is already in flight")

	// ErrConnection is the generic retry-prompting condition for transport
	// faults: the connection could not be opened, or closed uncleanly.
	ErrConnection = errors.New("connection error, please try again")

	// ErrUnknownAnswer is returned when a rating references no settled
	// answer. Unsettled and errored turns have no answer identifier, so
	// ratings on them are rejected before any request is sent.
	ErrUnknownAnswer = errors.New("no settled answer with that identifier")

	// ErrInvalidRating is returned for a rating value outside {-1, 0, 1}.
	ErrInvalidRating = errors.New("rating must be -1, 0 or 1")

	// ErrReset is returned by an in-flight Ask whose conversation was reset.
	// The close was initiated locally, so it is not a session fault: no
	// error hook fires and nothing is recorded against the session.
	ErrReset = errors.New("conversation was reset")
)

// Session error kinds.
const (
	FaultTransport = "transport"
	FaultProtocol  = "protocol"
)

// SessionError reports a terminally failed session. Transport faults carry
// the generic ErrConnection message and unwrap to it; protocol faults carry
// the backend-supplied message verbatim.
type SessionError struct {
	Kind    string
	Message string
	cause   error
}

func (e *SessionError) Error() string {
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.cause
}

func transportFault(cause error) *SessionError {
	// The user-facing message stays generic; the underlying cause is kept
	// on the chain for logs and errors.Is checks.
	return &SessionError{Kind: FaultTransport, Message: ErrConnection.Error(), cause: errors.Join(ErrConnection, cause)}
}

func protocolFault(message string) *SessionError {
	return &SessionError{Kind: FaultProtocol, Message: message}
}
