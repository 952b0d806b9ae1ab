package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const vertexSystemPrompt = "You are a precise English lexicographer. You answer only with a single valid JSON object."

// VertexProvider sends prompts to a Gemini model on Vertex AI.
type VertexProvider struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexProvider creates a provider for the given project, region and model.
func NewVertexProvider(ctx context.Context, projectID, region, modelName string) (*VertexProvider, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexProvider: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(vertexSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	return &VertexProvider{model: model, baseClient: baseClient}, nil
}

// Complete makes one GenerateContent call.
func (p *VertexProvider) Complete(ctx context.Context, prompt string) (*Response, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return nil, &APIError{Provider: p.GetName(), StatusCode: 429, Message: err.Error()}
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return &Response{Text: extractText(resp)}, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (p *VertexProvider) GetName() string {
	return "vertex"
}

func (p *VertexProvider) Close() error {
	if p.baseClient != nil {
		return p.baseClient.Close()
	}
	return nil
}
