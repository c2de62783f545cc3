// Package chat implements the streaming chat session client: it opens one
// transient connection per question, drives the frame protocol to
// completion, and owns the Conversation aggregate (turns, history thread,
// ratings).
//
// The protocol is handled as an explicit state machine fed by a single
// event channel per session, so the transition table is testable without
// any transport or rendering layer attached. Connection callbacks do
// nothing but enqueue frames.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexibot/lexibot-go/internal/metrics"
	"github.com/lexibot/lexibot-go/internal/render"
	"github.com/lexibot/lexibot-go/internal/socket"
	"github.com/lexibot/lexibot-go/pkg/wire"
)

// Mode selects how a Client threads and displays turns.
type Mode int

const (
	// ModeAsk keeps only the latest question/answer pair visible. History
	// is still threaded privately so follow-up questions keep context.
	ModeAsk Mode = iota
	// ModeChat keeps the full turn list visible.
	ModeChat
	// ModeResearch is ModeChat with a larger citation set requested per
	// answer. It has no other wire behavior.
	ModeResearch
)

// researchContextItems is the context-item count requested in research
// mode when the caller does not override it.
const researchContextItems = 10

// Renderer converts answer markdown into sanitized display HTML. It is
// invoked once per accumulator mutation.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Hooks receive conversation events as a session progresses. Every field is
// optional. Callbacks run synchronously on the session goroutine and must
// not call back into the Client.
type Hooks struct {
	OnStateChange   func(from, to State)
	OnAnswerDelta   func(fragment string, turn *AnswerTurn)
	OnProgress      func(status string)
	OnAnswerSettled func(turn *AnswerTurn)
	OnSessionError  func(err error)
}

// Options configures a Client.
type Options struct {
	// StreamBase is the websocket base address, e.g. wss://chat.example.com.
	StreamBase string
	// APIBase is the REST base address used for ratings.
	APIBase string

	TeamID string
	BotID  string

	// Signature is the authentication signature for private bots; empty
	// for public bots. It is sent in the request frame and as a bearer
	// token on rating calls.
	Signature string

	// Identity is attached to every request when the asking user is known.
	Identity wire.Metadata

	// Testing is set when an identified operator is asking, so the backend
	// can exclude the exchange from usage counters.
	Testing bool

	Mode Mode

	// ContextItems overrides the research-mode context-item count.
	ContextItems int

	// Timeout bounds the websocket dial and, unless HTTPClient is supplied,
	// rating calls. Zero means 15 seconds.
	Timeout time.Duration

	Renderer   Renderer
	HTTPClient *http.Client
	Logger     *zap.Logger

	Hooks Hooks
}

// transport is the session surface the event loop consumes. Satisfied by
// *socket.Session; swapped out in tests.
type transport interface {
	Events() <-chan socket.Event
	Close() error
}

type dialFunc func(ctx context.Context, url string, req *wire.Request) (transport, error)

// Client drives conversations against one team/bot pair.
type Client struct {
	opts   Options
	log    *zap.Logger
	render Renderer
	httpc  *http.Client
	dial   dialFunc

	conv *Conversation
	sess transport
}

// New validates opts and returns a ready Client.
func New(opts Options) (*Client, error) {
	if opts.StreamBase == "" || opts.APIBase == "" {
		return nil, fmt.Errorf("stream and API base addresses are required")
	}
	if opts.TeamID == "" || opts.BotID == "" {
		return nil, fmt.Errorf("team and bot identifiers are required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := opts.Renderer
	if r == nil {
		r = render.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		opts:   opts,
		log:    log,
		render: r,
		httpc:  httpc,
		conv:   newConversation(),
	}
	c.dial = func(ctx context.Context, url string, req *wire.Request) (transport, error) {
		return socket.Dial(ctx, url, req, c.log)
	}
	return c, nil
}

// State returns the current session state.
func (c *Client) State() State {
	return c.conv.currentState()
}

// Turns returns the visible turn list in display order.
func (c *Client) Turns() []Turn {
	return c.conv.snapshotTurns()
}

// Ask submits one question and blocks until the session settles or fails.
// Hooks fire as frames arrive. Sessions are single-flight: a second Ask
// while one is outstanding returns ErrBusy with no side effects.
func (c *Client) Ask(ctx context.Context, question string) (*AnswerTurn, error) {
	if err := (&wire.Request{Question: question}).Validate(); err != nil {
		return nil, err
	}

	req, gen, err := c.begin(question)
	if err != nil {
		return nil, err
	}

	// The timeout bounds only the dial; frames may stream for longer.
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	sess, err := c.dial(dialCtx, c.streamURL(), req)
	if err != nil {
		c.log.Warn("dial failed", zap.Error(err))
		return nil, c.fail(gen, transportFault(err))
	}
	defer metrics.SessionDuration.Observe(time.Since(start).Seconds())

	if c.opts.Testing {
		// Telemetry fires once per opened connection for identified
		// operators.
		metrics.OperatorQuestions.Inc()
		c.log.Info("operator question",
			zap.String("team", c.opts.TeamID),
			zap.String("bot", c.opts.BotID),
		)
	}

	c.conv.mu.Lock()
	if c.conv.gen != gen {
		// Reset landed while the connection was being opened.
		c.conv.mu.Unlock()
		sess.Close()
		return nil, ErrReset
	}
	c.sess = sess
	c.conv.mu.Unlock()

	return c.run(ctx, sess, gen)
}

// begin performs the Idle→Sending transition and builds the request frame.
// The returned generation ties the session to the conversation it started
// against; Reset bumps it, detaching any session still in flight.
func (c *Client) begin(question string) (*wire.Request, uint64, error) {
	c.conv.mu.Lock()
	defer c.conv.mu.Unlock()

	if c.conv.state != StateIdle {
		return nil, 0, ErrBusy
	}
	if c.opts.Mode == ModeAsk {
		// Ask view shows only the latest pair; prior turns leave the view
		// but the history thread below still carries their context.
		c.conv.turns = nil
	}
	c.conv.turns = append(c.conv.turns, &QuestionTurn{Text: question})
	c.transitionLocked(StateSending)

	req := &wire.Request{
		Question: question,
		History:  c.conv.history,
		Testing:  c.opts.Testing,
		Metadata: c.opts.Identity,
		Auth:     c.opts.Signature,
	}
	if c.opts.Mode == ModeResearch {
		req.FullSource = true
		req.ContextItems = c.opts.ContextItems
		if req.ContextItems == 0 {
			req.ContextItems = researchContextItems
		}
	}
	return req, c.conv.gen, nil
}

// run consumes session events in arrival order until a terminal frame,
// transport fault or context cancellation.
func (c *Client) run(ctx context.Context, sess transport, gen uint64) (*AnswerTurn, error) {
	defer c.release(sess)

	for {
		select {
		case <-ctx.Done():
			sess.Close()
			return nil, c.abandon(ctx.Err())

		case ev, ok := <-sess.Events():
			if !ok {
				// Channel closed without a terminal frame: unclean close.
				return nil, c.fail(gen, transportFault(nil))
			}
			if ev.Err != nil {
				return nil, c.fail(gen, transportFault(ev.Err))
			}

			switch f := ev.Frame.(type) {
			case wire.Start:
				c.onStart(gen)
			case wire.Stream:
				c.onFragment(gen, f.Text)
			case wire.Info:
				if c.opts.Hooks.OnProgress != nil {
					c.opts.Hooks.OnProgress(f.Status)
				}
			case wire.End:
				return c.settle(gen, f.Payload)
			case wire.Error:
				return nil, c.fail(gen, protocolFault(f.Message))
			}
		}
	}
}

// onStart appends the empty answer placeholder and enters Streaming.
func (c *Client) onStart(gen uint64) {
	c.conv.mu.Lock()
	defer c.conv.mu.Unlock()

	if c.conv.gen != gen || c.conv.state != StateSending {
		// Detached session, duplicate or stray start.
		c.log.Debug("ignoring start frame", zap.Stringer("state", c.conv.state))
		return
	}
	turn := &AnswerTurn{RunID: uuid.NewString()}
	c.conv.turns = append(c.conv.turns, turn)
	c.conv.pending = turn
	c.transitionLocked(StateStreaming)
}

// onFragment appends one streamed fragment verbatim and re-renders the
// working text.
func (c *Client) onFragment(gen uint64, fragment string) {
	c.conv.mu.Lock()
	if c.conv.gen != gen {
		c.conv.mu.Unlock()
		return
	}
	turn := c.conv.pending
	if turn == nil {
		c.conv.mu.Unlock()
		c.log.Debug("stream frame before start, dropping")
		return
	}
	turn.Text += fragment
	turn.HTML = c.renderText(turn.Text)
	c.conv.mu.Unlock()

	if c.opts.Hooks.OnAnswerDelta != nil {
		c.opts.Hooks.OnAnswerDelta(fragment, turn)
	}
}

// settle finalizes the answer turn from the canonical end payload: the
// streamed concatenation is overwritten unconditionally, the citation set
// attached, and the history thread replaced with the server-supplied
// continuation.
func (c *Client) settle(gen uint64, payload wire.EndPayload) (*AnswerTurn, error) {
	c.conv.mu.Lock()
	if c.conv.gen != gen {
		// The conversation was reset under this session; the frame belongs
		// to a discarded exchange.
		c.conv.mu.Unlock()
		return nil, ErrReset
	}
	turn := c.conv.pending
	if turn == nil {
		// End without start; synthesize the placeholder so the canonical
		// answer is not lost.
		turn = &AnswerTurn{RunID: uuid.NewString()}
		c.conv.turns = append(c.conv.turns, turn)
	}
	turn.Markdown = payload.Answer
	turn.Text = payload.Answer
	turn.HTML = c.renderText(payload.Answer)
	turn.AnswerID = payload.ID
	turn.Sources = payload.Sources
	turn.settled = true
	if payload.ID != "" {
		c.conv.byAnswer[payload.ID] = turn
	}
	c.conv.history = payload.History
	c.conv.pending = nil
	c.transitionLocked(StateSettled)
	metrics.AnswersSettled.Inc()
	// No frame traffic is pending after settlement; the input re-enables.
	c.transitionLocked(StateIdle)
	c.conv.mu.Unlock()

	if c.opts.Hooks.OnAnswerSettled != nil {
		c.opts.Hooks.OnAnswerSettled(turn)
	}
	return turn, nil
}

// fail applies the cleanup rule and runs Errored→Idle. The returned error
// is the one handed to the caller of Ask.
func (c *Client) fail(gen uint64, serr *SessionError) error {
	c.conv.mu.Lock()
	if c.conv.gen != gen {
		// Reset detached this session, so the close was locally initiated
		// and is not a fault.
		c.conv.mu.Unlock()
		return ErrReset
	}
	if c.conv.state == StateSending || c.conv.state == StateStreaming {
		c.conv.dropPendingLocked()
		c.transitionLocked(StateErrored)
		c.transitionLocked(StateIdle)
	}
	c.conv.mu.Unlock()

	metrics.SessionErrors.WithLabelValues(serr.Kind).Inc()
	c.log.Warn("session failed", zap.String("kind", serr.Kind), zap.String("message", serr.Message))
	if c.opts.Hooks.OnSessionError != nil {
		c.opts.Hooks.OnSessionError(serr)
	}
	return serr
}

// abandon discards the pending turn after context cancellation without
// reporting a session fault.
func (c *Client) abandon(cause error) error {
	c.conv.mu.Lock()
	if c.conv.state == StateSending || c.conv.state == StateStreaming {
		c.conv.dropPendingLocked()
		c.transitionLocked(StateIdle)
	}
	c.conv.mu.Unlock()
	return cause
}

// release closes the session and clears the live-session reference.
func (c *Client) release(sess transport) {
	sess.Close()
	c.conv.mu.Lock()
	if c.sess == sess {
		c.sess = nil
	}
	c.conv.mu.Unlock()
}

// Reset clears the conversation and history thread entirely. If a session
// is streaming, its connection is closed and the pending answer turn is
// discarded, not finalized; the blocked Ask returns ErrReset rather than a
// session fault, since the close was locally initiated.
func (c *Client) Reset() {
	c.conv.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.conv.resetLocked()
	c.conv.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	c.log.Debug("conversation reset")
}

// transitionLocked moves the state machine and fires the hook. Caller holds
// the conversation lock.
func (c *Client) transitionLocked(to State) {
	from := c.conv.state
	if from == to {
		return
	}
	c.conv.state = to
	if c.opts.Hooks.OnStateChange != nil {
		c.opts.Hooks.OnStateChange(from, to)
	}
}

// renderText runs the render pipeline, falling back to the raw markdown on
// renderer failure so display never goes blank mid-stream.
func (c *Client) renderText(markdown string) string {
	html, err := c.render.Render(markdown)
	if err != nil {
		c.log.Warn("render failed", zap.Error(err))
		return markdown
	}
	return html
}

// streamURL derives the connection target for the configured team/bot pair.
// It is recomputed per question and never persisted.
func (c *Client) streamURL() string {
	return fmt.Sprintf("%s/teams/%s/bots/%s/chat",
		strings.TrimRight(c.opts.StreamBase, "/"), c.opts.TeamID, c.opts.BotID)
}
