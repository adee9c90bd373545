package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockInvoker is the subset of the Bedrock runtime client used here
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider implements Provider and Embedder for AWS Bedrock.
// Generation uses the Claude messages body; embeddings use a Titan model.
type BedrockProvider struct {
	client     bedrockInvoker
	model      string
	embedModel string
	region     string
}

// NewBedrockProvider creates a new AWS Bedrock provider
func NewBedrockProvider(ctx context.Context, region, model, embedModel string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}

	// Credentials come from the environment or the IAM role
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newBedrockProvider(bedrockruntime.NewFromConfig(cfg), region, model, embedModel), nil
}

func newBedrockProvider(client bedrockInvoker, region, model, embedModel string) *BedrockProvider {
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if embedModel == "" {
		embedModel = "amazon.titan-embed-text-v2:0"
	}
	return &BedrockProvider{
		client:     client,
		model:      model,
		embedModel: embedModel,
		region:     region,
	}
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return fmt.Sprintf("AWS Bedrock (%s)", p.model)
}

type bedrockClaudeRequest struct {
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	AnthropicVersion string    `json:"anthropic_version"`
}

type bedrockClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate invokes the configured Claude model once
func (p *BedrockProvider) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	system, rest := splitSystem(messages)
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	reqBody := bedrockClaudeRequest{
		System:           system,
		Messages:         rest,
		MaxTokens:        maxTokens,
		Temperature:      0.7,
		AnthropicVersion: "bedrock-2023-05-31",
	}

	var resp bedrockClaudeResponse
	if err := p.invoke(ctx, p.model, reqBody, &resp); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		out.WriteString(block.Text)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("bedrock: no content returned")
	}
	return strings.TrimSpace(out.String()), nil
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed creates an embedding with the Titan embedding model
func (p *BedrockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp titanEmbedResponse
	if err := p.invoke(ctx, p.embedModel, titanEmbedRequest{InputText: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock: no embedding returned")
	}
	return resp.Embedding, nil
}

func (p *BedrockProvider) invoke(ctx context.Context, modelID string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to call Bedrock API: %w", err)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode Bedrock response: %w", err)
	}
	return nil
}
