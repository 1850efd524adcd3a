package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/catcatAI/story-engine/internal/provider"
)

func TestScriptClient_PlaysBackInOrder(t *testing.T) {
	c := NewScriptClient([]FixtureResponse{
		{Shape: "queries", Queries: []string{"market"}},
		{Shape: "free_text", Text: "A quiet evening."},
	})

	resp, err := c.Generate(context.Background(), provider.Request{Shape: provider.ShapeQueries})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if diff := cmp.Diff([]string{"market"}, resp.Queries); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}

	resp, err = c.Generate(context.Background(), provider.Request{Shape: provider.ShapeFreeText})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if resp.Text != "A quiet evening." {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", c.Remaining())
	}
}

func TestScriptClient_ExhaustedErrors(t *testing.T) {
	c := NewScriptClient(nil)
	_, err := c.Generate(context.Background(), provider.Request{})
	if err == nil {
		t.Fatal("expected error on exhausted script, got nil")
	}
}

func TestScriptClient_ShapeError(t *testing.T) {
	c := NewScriptClient([]FixtureResponse{
		{Shape: "turn_result", Error: "shape", Text: "plain prose"},
	})
	resp, err := c.Generate(context.Background(), provider.Request{Shape: provider.ShapeTurnResult})
	if !errors.Is(err, provider.ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if resp.Text != "plain prose" {
		t.Errorf("expected raw text preserved on shape error, got %q", resp.Text)
	}
}

// fixedClient returns one canned response for every call.
type fixedClient struct {
	resp provider.Response
	err  error
}

func (c *fixedClient) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	return c.resp, c.err
}

func TestRecordingClient_CapturesResponses(t *testing.T) {
	inner := &fixedClient{resp: provider.Response{Queries: []string{"guard"}, Text: `{"queries": ["guard"]}`}}
	rec := NewRecordingClient(inner)

	if _, err := rec.Generate(context.Background(), provider.Request{Shape: provider.ShapeQueries}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := rec.Generate(context.Background(), provider.Request{Shape: provider.ShapeQueries}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got := rec.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 recorded responses, got %d", len(got))
	}
	if got[0].Shape != "queries" {
		t.Errorf("expected shape=queries, got %s", got[0].Shape)
	}
	if diff := cmp.Diff([]string{"guard"}, got[0].Queries); diff != "" {
		t.Errorf("recorded queries mismatch (-want +got):\n%s", diff)
	}

	// Drain resets the buffer.
	if rest := rec.Drain(); len(rest) != 0 {
		t.Errorf("expected empty buffer after drain, got %d", len(rest))
	}
}

func TestRecordingClient_RecordsShapeErrors(t *testing.T) {
	inner := &fixedClient{resp: provider.Response{Text: "prose"}, err: provider.ErrShape}
	rec := NewRecordingClient(inner)

	if _, err := rec.Generate(context.Background(), provider.Request{Shape: provider.ShapeTurnResult}); !errors.Is(err, provider.ErrShape) {
		t.Fatalf("expected ErrShape passthrough, got %v", err)
	}

	got := rec.Drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 recorded response, got %d", len(got))
	}
	if got[0].Error != "shape" {
		t.Errorf("expected error=shape, got %q", got[0].Error)
	}
	if got[0].Text != "prose" {
		t.Errorf("expected raw text preserved, got %q", got[0].Text)
	}
}
