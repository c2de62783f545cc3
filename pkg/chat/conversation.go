package chat

import (
	"encoding/json"
	"sync"
)

// Conversation is the owned aggregate holding the ordered turn list, the
// history thread and the session state machine. It is the only mutable
// shared state in the package; every mutation happens under its lock, so
// late-arriving rating responses can safely patch historical turns by
// identifier while a new session streams.
type Conversation struct {
	mu       sync.Mutex
	state    State
	turns    []Turn
	pending  *AnswerTurn
	byAnswer map[string]*AnswerTurn

	// gen increments on every reset. A session whose generation no longer
	// matches was detached by Reset and must not touch the conversation or
	// report faults.
	gen uint64

	// history is the continuation state last echoed by an end frame. It is
	// opaque: never rebuilt from turns, only replaced wholesale.
	history json.RawMessage
}

func newConversation() *Conversation {
	return &Conversation{
		state:    StateIdle,
		byAnswer: make(map[string]*AnswerTurn),
	}
}

// snapshotTurns returns a copy of the turn list in display order.
func (c *Conversation) snapshotTurns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// currentState returns the state machine position.
func (c *Conversation) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// dropPendingLocked removes an unsettled answer turn from the turn list.
// This is the cleanup rule: a failed session must never leave an empty
// answer bubble behind. Caller holds the lock.
func (c *Conversation) dropPendingLocked() {
	if c.pending == nil {
		return
	}
	for i, t := range c.turns {
		if t == Turn(c.pending) {
			c.turns = append(c.turns[:i], c.turns[i+1:]...)
			break
		}
	}
	c.pending = nil
}

// resetLocked clears turns, pending state and the history thread. Caller
// holds the lock.
func (c *Conversation) resetLocked() {
	c.turns = nil
	c.pending = nil
	c.history = nil
	c.byAnswer = make(map[string]*AnswerTurn)
	c.state = StateIdle
	c.gen++
}
