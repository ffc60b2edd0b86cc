// Package aitest provides a scripted ai.Client for tests and dry runs.
package aitest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spigell/hiring-pipeline/internal/ai"
)

// ErrScriptExhausted is returned when more calls are made than replies queued.
var ErrScriptExhausted = errors.New("aitest: no scripted reply left")

// Reply is one scripted outcome. Either Err or Completion is used.
type Reply struct {
	Completion ai.Completion
	Err        error
	// Delay simulates provider latency; the call honours ctx while waiting.
	Delay time.Duration
}

// Call records what the client was asked.
type Call struct {
	Prompt string
	Config ai.ModelConfig
}

// Client replays scripted replies in order. It is safe for concurrent use.
type Client struct {
	provider string

	mu      sync.Mutex
	replies []Reply
	repeat  *Reply
	calls   []Call
}

// New creates a Client that returns the given replies in order.
func New(replies ...Reply) *Client {
	return &Client{provider: "scripted", replies: replies}
}

// Text is a shortcut for a successful reply with the given text.
func Text(text string) Reply {
	return Reply{Completion: ai.Completion{
		Text:         text,
		Model:        "scripted-model",
		InputTokens:  len(text) / 4,
		OutputTokens: len(text) / 4,
		StopReason:   "stop",
	}}
}

// Fail is a shortcut for a failing reply.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Always makes the client return r once the queue is drained.
func (c *Client) Always(r Reply) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeat = &r
	return c
}

// Enqueue appends replies to the script.
func (c *Client) Enqueue(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) Call(ctx context.Context, prompt string, cfg ai.ModelConfig) (*ai.Completion, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Prompt: prompt, Config: cfg})
	var reply Reply
	switch {
	case len(c.replies) > 0:
		reply = c.replies[0]
		c.replies = c.replies[1:]
	case c.repeat != nil:
		reply = *c.repeat
	default:
		c.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	c.mu.Unlock()

	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if reply.Err != nil {
		return nil, reply.Err
	}

	out := reply.Completion
	if out.Model == "" {
		out.Model = cfg.Model
	}
	if out.Latency == 0 {
		out.Latency = reply.Delay
	}
	return &out, nil
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}
