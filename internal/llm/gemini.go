package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

// DefaultModel is the default Gemini model used for all task types.
const DefaultModel = "gemini-flash-lite-latest"

// GeminiClient is the Gemini-backed Client implementation. Structured output
// is enforced with a response schema per task type, so Data is always
// schema-shaped JSON when Success is true.
type GeminiClient struct {
	modelName string
	gClient   *genai.Client
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini-backed client. The API key is taken from
// the GEMINI_API_KEY environment variable, falling back to gemini.api_key in
// viper configuration.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = viper.GetString("gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY or gemini.api_key in config")
	}

	if modelName == "" {
		modelName = viper.GetString("gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// Complete issues one structured-output generation call. Provider-reported
// failures come back as Success=false; only transport or programming errors
// are returned as Go errors.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return Response{}, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schemaFor(req.Task),
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return Response{
			Success:      false,
			ErrorMessage: err.Error(),
			ProviderUsed: "gemini/" + c.modelName,
		}, nil
	}

	text := resp.Text()
	if text == "" {
		return Response{
			Success:      false,
			ErrorMessage: "empty response from model",
			ProviderUsed: "gemini/" + c.modelName,
		}, nil
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return Response{
		Success:      true,
		Data:         []byte(text),
		ProviderUsed: "gemini/" + c.modelName,
		TokensUsed:   tokens,
	}, nil
}

func buildPrompt(req Request) (string, error) {
	switch req.Task {
	case TaskAnalysis:
		return fmt.Sprintf(AnalysisPromptTemplate, req.Content), nil
	case TaskBatchAnalysis:
		return fmt.Sprintf(BatchAnalysisPromptTemplate, req.Content), nil
	case TaskKnowledgeCard:
		return fmt.Sprintf(CardPromptTemplate, req.Instructions, req.Content), nil
	case TaskTournament:
		return fmt.Sprintf(TournamentPromptTemplate, req.Instructions, req.Content), nil
	default:
		return "", fmt.Errorf("unknown task type: %s", req.Task)
	}
}

func schemaFor(task TaskType) *genai.Schema {
	switch task {
	case TaskAnalysis:
		return analysisSchema()
	case TaskBatchAnalysis:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"articles": {
					Type:  genai.TypeArray,
					Items: batchScoreSchema(),
				},
			},
			Required: []string{"articles"},
		}
	case TaskKnowledgeCard:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"headline_layer": {Type: genai.TypeString},
				"facts_layer": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"context_layer":     {Type: genai.TypeString},
				"mains_angle_layer": {Type: genai.TypeString},
			},
			Required: []string{"headline_layer", "facts_layer", "context_layer", "mains_angle_layer"},
		}
	case TaskTournament:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"selected_article_ids": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"selected_article_ids"},
		}
	default:
		return nil
	}
}

func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"upsc_relevance": {Type: genai.TypeInteger},
			"relevant_papers": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"key_topics": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"upsc_relevance", "relevant_papers", "key_topics", "summary"},
	}
}

func batchScoreSchema() *genai.Schema {
	s := analysisSchema()
	s.Properties["article_id"] = &genai.Schema{Type: genai.TypeString}
	s.Required = append([]string{"article_id"}, s.Required...)
	return s
}
