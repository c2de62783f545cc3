package wire

import (
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// Question length bounds enforced before any connection is opened.
const (
	MinQuestionLen = 2
	MaxQuestionLen = 2000
)

// ErrQuestionLength is returned when a question falls outside the accepted
// length bounds.
var ErrQuestionLength = errors.New("question must be between 2 and 2000 characters")

// Metadata identifies the asking user when known. Both fields are optional.
type Metadata struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Request is the single outbound frame transmitted immediately after the
// connection opens. History carries the continuation state returned by the
// previous end frame and is omitted when no prior turn exists. ContextItems
// is set only in research mode, where the backend returns a larger citation
// set. Auth carries the signature required by private bots.
type Request struct {
	Question     string          `json:"question"`
	History      json.RawMessage `json:"history,omitempty"`
	Testing      bool            `json:"testing"`
	Metadata     Metadata        `json:"metadata"`
	FullSource   bool            `json:"full_source,omitempty"`
	ContextItems int             `json:"context_items,omitempty"`
	Auth         string          `json:"auth,omitempty"`
}

// Validate checks the request is sendable. Length is measured in runes so
// multi-byte questions are not rejected early.
func (r *Request) Validate() error {
	n := utf8.RuneCountInString(r.Question)
	if n < MinQuestionLen || n > MaxQuestionLen {
		return ErrQuestionLength
	}
	return nil
}

// Encode serializes the request for transmission.
func (r *Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}
