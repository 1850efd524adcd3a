package provider

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// #endregion

// #region target

// Target selects which provider backend serves a request.
type Target string

const (
	// TargetPrimary is the default generation backend.
	TargetPrimary Target = "primary"
	// TargetAdvanced is the higher-capability backend preferred by the
	// Security tier.
	TargetAdvanced Target = "advanced"
	// TargetFallback is the secondary backend used for the one internal
	// retry after a transport failure.
	TargetFallback Target = "fallback"
)

// #endregion target

// #region shape

// Shape constrains the response format of a request.
type Shape string

const (
	// ShapeQueries asks for a JSON object {"queries": [...]}.
	ShapeQueries Shape = "queries"
	// ShapeTurnResult asks for a structured turn-result document.
	ShapeTurnResult Shape = "turn_result"
	// ShapeFreeText places no constraint on the output.
	ShapeFreeText Shape = "free_text"
)

// #endregion shape

// #region request-response

// Request is one generation call.
type Request struct {
	Target      Target
	Instruction string
	Context     string
	Shape       Shape
	Temperature float32
}

// Response carries exactly one of the three payloads depending on the
// requested shape. Text always holds the raw model output.
type Response struct {
	Queries  []string
	Document json.RawMessage
	Text     string
}

// Client is the generation backend seam. Implementations wrap one concrete
// provider; a Router composes them per target.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// #endregion request-response

// #region errors

// ErrShape marks a response that did not match the requested shape. The
// pipeline degrades gracefully on it in phase 1 and treats it as a terminal
// parse failure in phase 2.
var ErrShape = errors.New("provider: response did not match requested shape")

// #endregion errors

// #region decode

// decodeShape interprets raw model output according to the requested shape.
func decodeShape(shape Shape, text string) (Response, error) {
	trimmed := strings.TrimSpace(text)
	switch shape {
	case ShapeQueries:
		var wrapped struct {
			Queries []string `json:"queries"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil {
			return Response{Queries: wrapped.Queries, Text: text}, nil
		}
		// Some models emit a bare array.
		var bare []string
		if err := json.Unmarshal([]byte(trimmed), &bare); err == nil {
			return Response{Queries: bare, Text: text}, nil
		}
		return Response{Text: text}, fmt.Errorf("%w: %.80q", ErrShape, trimmed)

	case ShapeTurnResult:
		if !json.Valid([]byte(trimmed)) {
			return Response{Text: text}, fmt.Errorf("%w: %.80q", ErrShape, trimmed)
		}
		return Response{Document: json.RawMessage(trimmed), Text: text}, nil

	default:
		return Response{Text: text}, nil
	}
}

// #endregion decode
