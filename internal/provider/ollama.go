package provider

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

// #endregion

// #region config

// OllamaConfig selects the local model used for the fallback target.
type OllamaConfig struct {
	Model string
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{Model: "llama3.1"}
}

// #endregion config

// #region client

// OllamaClient serves requests from a local Ollama daemon. It backs the
// fallback target and can stand in for every target when no Gemini key is
// configured.
type OllamaClient struct {
	client *api.Client
	cfg    OllamaConfig
}

// NewOllamaClient connects via OLLAMA_HOST or the default local address.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama: create client: %w", err)
	}
	if cfg.Model == "" {
		cfg = DefaultOllamaConfig()
	}
	return &OllamaClient{client: client, cfg: cfg}, nil
}

// #endregion client

// #region generate

// Generate issues one non-streaming call against the local model.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (Response, error) {
	stream := false
	greq := &api.GenerateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Context,
		System: req.Instruction,
		Stream: &stream,
		Options: map[string]any{
			"temperature": float64(req.Temperature),
		},
	}
	if req.Shape != ShapeFreeText {
		greq.Format = json.RawMessage(`"json"`)
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, greq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("ollama generate (%s): %w", c.cfg.Model, err)
	}

	return decodeShape(req.Shape, sb.String())
}

// #endregion generate
