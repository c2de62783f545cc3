package chat

import "github.com/lexibot/lexibot-go/pkg/wire"

// State is the lifecycle position of a Conversation's current session.
type State int

const (
	// StateIdle means no session is outstanding; questions are accepted.
	StateIdle State = iota
	// StateSending means a question was submitted and the connection is
	// being opened; no answer frame has arrived yet.
	StateSending
	// StateStreaming means a start frame arrived and fragments are being
	// accumulated.
	StateStreaming
	// StateSettled means the last session ended with a canonical answer.
	StateSettled
	// StateErrored means the last session ended in a transport or protocol
	// fault.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Turn is one unit of a Conversation: either a *QuestionTurn or an
// *AnswerTurn, in display order.
type Turn interface {
	turn()
}

// QuestionTurn is the user's side of an exchange.
type QuestionTurn struct {
	Text string
}

// AnswerTurn is the bot's side of an exchange. While its session streams,
// Text grows fragment by fragment; on settlement Text and Markdown are
// overwritten with the canonical answer and the citation set is attached.
type AnswerTurn struct {
	// RunID identifies the session that produced this answer locally.
	RunID string

	// Text is the working display text. Progressive approximation during
	// streaming; canonical after settlement.
	Text string

	// Markdown is the canonical answer markdown. Empty until settlement.
	Markdown string

	// HTML is the rendered display form of Text.
	HTML string

	// AnswerID is the backend identifier issued in the end frame, used to
	// key ratings. Empty until settlement.
	AnswerID string

	// Rating is the locally applied rating: -1, 0 or +1. It may transiently
	// diverge from the server-confirmed value until the REST call resolves.
	Rating int

	// Sources is the citation set delivered whole in the end frame.
	Sources []wire.Source

	settled bool
}

func (*QuestionTurn) turn() {}
func (*AnswerTurn) turn()   {}

// Settled reports whether the turn was finalized with a canonical answer.
func (t *AnswerTurn) Settled() bool {
	return t.settled
}
