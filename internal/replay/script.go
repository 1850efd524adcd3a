package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/catcatAI/story-engine/internal/provider"
)

// #region script-client

// ScriptClient is a provider.Client that plays back recorded responses in
// call order. It ignores the request target so a single script serves both
// the first attempt and the internal fallback retry.
type ScriptClient struct {
	mu        sync.Mutex
	responses []FixtureResponse
	next      int
}

// NewScriptClient builds a client over a recorded response sequence.
func NewScriptClient(responses []FixtureResponse) *ScriptClient {
	return &ScriptClient{responses: responses}
}

// Generate pops the next recorded response. It errors once the script is
// exhausted so a fixture with too few responses fails loudly.
func (c *ScriptClient) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.next >= len(c.responses) {
		return provider.Response{}, fmt.Errorf("replay: script exhausted after %d response(s)", len(c.responses))
	}
	rec := c.responses[c.next]
	c.next++

	if rec.Error != "" {
		if rec.Error == "shape" {
			return provider.Response{Text: rec.Text}, fmt.Errorf("replay: %w", provider.ErrShape)
		}
		return provider.Response{}, errors.New(rec.Error)
	}
	return provider.Response{
		Queries:  rec.Queries,
		Document: rec.Document,
		Text:     rec.Text,
	}, nil
}

// Remaining reports how many recorded responses were not consumed.
func (c *ScriptClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses) - c.next
}

// #endregion script-client

// #region recording-client

// RecordingClient wraps a live provider.Client and captures every response
// it returns, in call order, so a real session can be exported as a fixture.
type RecordingClient struct {
	inner provider.Client

	mu       sync.Mutex
	recorded []FixtureResponse
}

// NewRecordingClient wraps a client for capture.
func NewRecordingClient(inner provider.Client) *RecordingClient {
	return &RecordingClient{inner: inner}
}

// Generate delegates to the wrapped client and records the result.
func (c *RecordingClient) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	resp, err := c.inner.Generate(ctx, req)

	rec := FixtureResponse{
		Shape:    string(req.Shape),
		Queries:  resp.Queries,
		Document: resp.Document,
		Text:     resp.Text,
	}
	if err != nil {
		if errors.Is(err, provider.ErrShape) {
			rec.Error = "shape"
		} else {
			rec.Error = err.Error()
		}
	}

	c.mu.Lock()
	c.recorded = append(c.recorded, rec)
	c.mu.Unlock()

	return resp, err
}

// Drain returns the responses captured since the last call and resets the
// buffer. Call it once per turn to build that turn's response script.
func (c *RecordingClient) Drain() []FixtureResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.recorded
	c.recorded = nil
	return out
}

// #endregion recording-client
