package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lexibot/lexibot-go/internal/metrics"
)

// Rating values.
const (
	RatingDown    = -1
	RatingNeutral = 0
	RatingUp      = 1
)

type ratingRequest struct {
	Rating int `json:"rating"`
}

// ratingResponse is the confirmation body. A 2xx response carrying an error
// field still counts as a failed rating.
type ratingResponse struct {
	Error string `json:"error"`
}

// Rate applies value to the settled answer identified by answerID. The
// value is applied optimistically, then confirmed over REST; on any failure
// it rolls back to neutral. Rating an answer at its current value is a
// no-op, so a rating is never resubmitted. Ratings are independent of the
// socket session and may be issued at any time after settlement, including
// while a later question streams: the turn is patched by identifier, never
// by position.
func (c *Client) Rate(ctx context.Context, answerID string, value int) error {
	if value != RatingDown && value != RatingNeutral && value != RatingUp {
		return ErrInvalidRating
	}
	if answerID == "" {
		return ErrUnknownAnswer
	}

	c.conv.mu.Lock()
	turn := c.conv.byAnswer[answerID]
	if turn == nil {
		c.conv.mu.Unlock()
		return ErrUnknownAnswer
	}
	if turn.Rating == value {
		// The control for the active value is disabled; nothing to send.
		c.conv.mu.Unlock()
		return nil
	}
	turn.Rating = value
	c.conv.mu.Unlock()

	if err := c.putRating(ctx, answerID, value); err != nil {
		c.conv.mu.Lock()
		turn.Rating = RatingNeutral
		c.conv.mu.Unlock()
		metrics.RatingsTotal.WithLabelValues("rolled_back").Inc()
		c.log.Warn("rating rolled back", zap.String("answer_id", answerID), zap.Error(err))
		return fmt.Errorf("rating not saved: %w", err)
	}

	metrics.RatingsTotal.WithLabelValues("confirmed").Inc()
	return nil
}

// putRating issues the REST confirmation call.
func (c *Client) putRating(ctx context.Context, answerID string, value int) error {
	body, err := json.Marshal(ratingRequest{Rating: value})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/teams/%s/bots/%s/rate/%s",
		strings.TrimRight(c.opts.APIBase, "/"), c.opts.TeamID, c.opts.BotID, answerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Signature != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Signature)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("rating endpoint returned %s", resp.Status)
	}

	// Some failures come back as 2xx with an error field in the body.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return err
	}
	if len(data) > 0 {
		var confirm ratingResponse
		if err := json.Unmarshal(data, &confirm); err == nil && confirm.Error != "" {
			return fmt.Errorf("rating rejected: %s", confirm.Error)
		}
	}
	return nil
}
