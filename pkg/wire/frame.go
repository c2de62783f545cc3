// Package wire implements the frame protocol spoken between the chat client
// and the answer-generation backend.
//
// Inbound traffic is a sequence of JSON envelopes {sender, type, message}.
// Only frames from sender "bot" are meaningful; anything else on the wire is
// noise and is dropped without error. The terminal "end" and "error" frames
// carry a second JSON document encoded inside the envelope's message string,
// a quirk of the backend reusing one envelope shape for both token fragments
// and structured payloads. Decode makes that second pass an explicit, typed
// step instead of an ad hoc reparse.
package wire

import (
	"encoding/json"
	"fmt"
)

// Frame type tags as they appear on the wire.
const (
	TypeStart  = "start"
	TypeStream = "stream"
	TypeInfo   = "info"
	TypeEnd    = "end"
	TypeError  = "error"
)

// senderBot is the only sender whose frames are processed.
const senderBot = "bot"

// Frame is one decoded inbound frame. The concrete types are Start, Stream,
// Info, End and Error; the set is closed.
type Frame interface {
	// Type returns the wire tag of the frame.
	Type() string
}

// Start announces that the backend accepted the question and is about to
// stream an answer. Its message is ignored.
type Start struct{}

// Stream carries one answer fragment, to be appended verbatim in arrival
// order.
type Stream struct {
	Text string
}

// Info carries a short human-readable progress status. It never touches the
// answer buffer.
type Info struct {
	Status string
}

// End is the terminal success frame with the canonical answer payload.
type End struct {
	Payload EndPayload
}

// Error is the terminal failure frame; Message is surfaced to the user
// verbatim.
type Error struct {
	Message string
}

func (Start) Type() string  { return TypeStart }
func (Stream) Type() string { return TypeStream }
func (Info) Type() string   { return TypeInfo }
func (End) Type() string    { return TypeEnd }
func (Error) Type() string  { return TypeError }

// Source is one citation attached to a settled answer. Sources arrive whole
// inside the end frame and are immutable afterwards.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Page    int    `json:"page,omitempty"`
	Content string `json:"content,omitempty"`
}

// EndPayload is the canonical result decoded from an end frame's message.
// History is the continuation state to echo back on the next request; the
// client treats it as opaque and never rebuilds it from its own turn list.
type EndPayload struct {
	Answer  string          `json:"answer"`
	Sources []Source        `json:"sources"`
	ID      string          `json:"id"`
	History json.RawMessage `json:"history"`
}

// envelope is the outer shape of every inbound frame.
type envelope struct {
	Sender  string `json:"sender"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decode parses one inbound wire frame.
//
// The second return value reports whether data held a meaningful frame.
// Unparseable envelopes, non-bot senders and unknown frame types return
// (nil, false, nil): they are ignorable noise, never a protocol fault. The
// only error case is an end frame whose inner payload does not decode: the
// session cannot settle without a canonical answer, so dropping such a frame
// silently would strand it mid-stream.
func Decode(data []byte) (Frame, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, nil
	}
	if env.Sender != senderBot {
		return nil, false, nil
	}

	switch env.Type {
	case TypeStart:
		return Start{}, true, nil
	case TypeStream:
		return Stream{Text: env.Message}, true, nil
	case TypeInfo:
		return Info{Status: env.Message}, true, nil
	case TypeEnd:
		var payload EndPayload
		if err := json.Unmarshal([]byte(env.Message), &payload); err != nil {
			return nil, false, fmt.Errorf("decoding end payload: %w", err)
		}
		return End{Payload: payload}, true, nil
	case TypeError:
		return Error{Message: unquote(env.Message)}, true, nil
	default:
		return nil, false, nil
	}
}

// unquote strips one layer of JSON string encoding when present. Error
// frames arrive double-encoded like end frames, but older backends send the
// message bare, so the raw value is kept as a fallback.
func unquote(message string) string {
	var s string
	if err := json.Unmarshal([]byte(message), &s); err == nil {
		return s
	}
	return message
}
