package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexibot/lexibot-go/internal/socket"
	"github.com/lexibot/lexibot-go/pkg/wire"
)

// ratingServer records rating calls and plays back a scripted response.
type ratingServer struct {
	mu       sync.Mutex
	calls    []ratingCall
	status   int
	body     string
	lastAuth string
}

type ratingCall struct {
	path   string
	rating int
}

func (rs *ratingServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ratingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		rs.mu.Lock()
		rs.calls = append(rs.calls, ratingCall{path: r.URL.Path, rating: req.Rating})
		rs.lastAuth = r.Header.Get("Authorization")
		status, body := rs.status, rs.body
		rs.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
	})
}

func (rs *ratingServer) callCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.calls)
}

// settledClient returns a client with one settled answer "abc123".
func settledClient(t *testing.T, apiBase string, signature string) *Client {
	t.Helper()
	c := newTestClient(t, Options{Mode: ModeChat, APIBase: apiBase, Signature: signature})
	script(c, []socket.Event{
		fr(wire.Start{}),
		fr(wire.Stream{Text: "We offer refunds."}),
		endFrame("We offer refunds.", "abc123", `[]`, wire.Source{Title: "Policy"}),
	})
	_, err := c.Ask(context.Background(), "What is refund policy?")
	require.NoError(t, err)
	return c
}

func answerTurn(t *testing.T, c *Client, id string) *AnswerTurn {
	t.Helper()
	for _, turn := range c.Turns() {
		if a, ok := turn.(*AnswerTurn); ok && a.AnswerID == id {
			return a
		}
	}
	t.Fatalf("no answer turn with id %q", id)
	return nil
}

func TestRate_OptimisticConfirmed(t *testing.T) {
	rs := &ratingServer{}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	require.NoError(t, c.Rate(context.Background(), "abc123", RatingUp))

	assert.Equal(t, RatingUp, answerTurn(t, c, "abc123").Rating)
	require.Equal(t, 1, rs.callCount())
	assert.Equal(t, "/teams/team1/bots/bot1/rate/abc123", rs.calls[0].path)
	assert.Equal(t, 1, rs.calls[0].rating)
}

func TestRate_SameValueTwiceSendsOneRequest(t *testing.T) {
	rs := &ratingServer{}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	require.NoError(t, c.Rate(context.Background(), "abc123", RatingUp))
	require.NoError(t, c.Rate(context.Background(), "abc123", RatingUp))

	assert.Equal(t, 1, rs.callCount())
	assert.Equal(t, RatingUp, answerTurn(t, c, "abc123").Rating)
}

func TestRate_RollbackOnServerError(t *testing.T) {
	rs := &ratingServer{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	err := c.Rate(context.Background(), "abc123", RatingUp)
	require.Error(t, err)
	assert.Equal(t, RatingNeutral, answerTurn(t, c, "abc123").Rating)
}

func TestRate_RollbackOnErrorBodyWithOKStatus(t *testing.T) {
	rs := &ratingServer{status: http.StatusOK, body: `{"error":"already rated"}`}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	turn := answerTurn(t, c, "abc123")
	textBefore, sourcesBefore := turn.Text, len(turn.Sources)

	err := c.Rate(context.Background(), "abc123", RatingDown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already rated")

	// The rating reverts; the turn's answer text and sources are untouched.
	assert.Equal(t, RatingNeutral, turn.Rating)
	assert.Equal(t, textBefore, turn.Text)
	assert.Len(t, turn.Sources, sourcesBefore)
	assert.Equal(t, StateIdle, c.State())
}

func TestRate_BearerSignatureForPrivateBots(t *testing.T) {
	rs := &ratingServer{}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "secret-sig")
	require.NoError(t, c.Rate(context.Background(), "abc123", RatingUp))
	assert.Equal(t, "Bearer secret-sig", rs.lastAuth)
}

func TestRate_RejectsUnknownAndUnsettled(t *testing.T) {
	rs := &ratingServer{}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	assert.ErrorIs(t, c.Rate(context.Background(), "", RatingUp), ErrUnknownAnswer)
	assert.ErrorIs(t, c.Rate(context.Background(), "nope", RatingUp), ErrUnknownAnswer)
	assert.ErrorIs(t, c.Rate(context.Background(), "abc123", 2), ErrInvalidRating)
	assert.Equal(t, 0, rs.callCount())
}

func TestRate_PatchesHistoricalTurnById(t *testing.T) {
	rs := &ratingServer{}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := newTestClient(t, Options{Mode: ModeChat, APIBase: srv.URL})
	script(c,
		[]socket.Event{fr(wire.Start{}), endFrame("first", "id1", `[]`)},
		[]socket.Event{fr(wire.Start{}), endFrame("second", "id2", `[]`)},
	)
	_, err := c.Ask(context.Background(), "first question")
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "second question")
	require.NoError(t, err)

	// Rating the first answer after a later exchange patches it by
	// identifier, not by current position.
	require.NoError(t, c.Rate(context.Background(), "id1", RatingDown))
	assert.Equal(t, RatingDown, answerTurn(t, c, "id1").Rating)
	assert.Equal(t, RatingNeutral, answerTurn(t, c, "id2").Rating)
}

func TestRate_NeutralResubmissionAllowedAfterRollback(t *testing.T) {
	rs := &ratingServer{status: http.StatusBadGateway}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	c := settledClient(t, srv.URL, "")
	require.Error(t, c.Rate(context.Background(), "abc123", RatingUp))

	rs.mu.Lock()
	rs.status = http.StatusOK
	rs.mu.Unlock()

	require.NoError(t, c.Rate(context.Background(), "abc123", RatingUp))
	assert.Equal(t, RatingUp, answerTurn(t, c, "abc123").Rating)
}
