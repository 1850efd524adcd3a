package provider

// #region imports
import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// #endregion

// #region config

// GeminiConfig holds models and credentials for the Gemini backend.
type GeminiConfig struct {
	APIKey        string
	PrimaryModel  string
	AdvancedModel string
	MaxTokens     int32
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:        apiKey,
		PrimaryModel:  "gemini-2.5-flash",
		AdvancedModel: "gemini-2.5-pro",
		MaxTokens:     4096,
	}
}

// #endregion config

// #region client

// GeminiClient serves the primary and advanced targets through the Gemini
// API, enforcing response schemas server-side for structured shapes.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiClient connects to the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg}, nil
}

// Close releases the underlying client. The genai client holds no
// resources that need releasing, so this is a no-op.
func (c *GeminiClient) Close() error {
	return nil
}

// #endregion client

// #region generate

// Generate issues one call against the model selected by the request target.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := c.cfg.PrimaryModel
	if req.Target == TargetAdvanced {
		model = c.cfg.AdvancedModel
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: c.cfg.MaxTokens,
	}
	if req.Instruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}
	switch req.Shape {
	case ShapeQueries:
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = queriesSchema
	case ShapeTurnResult:
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = turnResultSchema
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Context), gc)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate (%s): %w", model, err)
	}

	text := resp.Text()
	if text == "" {
		log.Printf("[PROVIDER] gemini returned empty candidate for model %s", model)
	}
	return decodeShape(req.Shape, text)
}

// #endregion generate

// #region schemas

var queriesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"queries": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"queries"},
}

var turnResultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"narrative":  {Type: genai.TypeString},
		"spokenLine": {Type: genai.TypeString},
		"dice": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"roll":    {Type: genai.TypeInteger},
				"target":  {Type: genai.TypeInteger},
				"skill":   {Type: genai.TypeString},
				"success": {Type: genai.TypeBoolean},
			},
			Required: []string{"roll", "target", "success"},
		},
		"statChanges": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":  {Type: genai.TypeString},
					"delta": {Type: genai.TypeInteger},
				},
				Required: []string{"name", "delta"},
			},
		},
		"inventoryChanges": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"item":     {Type: genai.TypeString},
					"count":    {Type: genai.TypeInteger},
					"acquired": {Type: genai.TypeBoolean},
				},
				Required: []string{"item", "count", "acquired"},
			},
		},
		"characterChanges": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {Type: genai.TypeString},
					"note": {Type: genai.TypeString},
				},
				Required: []string{"name"},
			},
		},
		"vehicleChanges": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":   {Type: genai.TypeString},
					"status": {Type: genai.TypeString},
				},
				Required: []string{"name"},
			},
		},
		"propertyChanges": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":   {Type: genai.TypeString},
					"status": {Type: genai.TypeString},
				},
				Required: []string{"name"},
			},
		},
		"newLocations": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"suggestedActions": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"challenge": {Type: genai.TypeString},
	},
	Required: []string{"narrative"},
}

// #endregion schemas
