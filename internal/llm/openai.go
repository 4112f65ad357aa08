package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Generator and Embedder on top of the go-openai SDK.
// BaseURL may point at any OpenAI-compatible API, including Gemini's compatibility layer.
type OpenAIProvider struct {
	cli            *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	expectedSize   int
}

// OpenAIConfig holds the settings for NewOpenAIProvider.
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	ExpectedSize   int
}

// NewOpenAIProvider creates a provider. A BaseURL without a /v1 suffix gets one appended.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		clientConfig.BaseURL = base
	}

	return &OpenAIProvider{
		cli:            openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		expectedSize:   cfg.ExpectedSize,
	}
}

// Generate sends prompt as a single user message.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: p.temperature,
	}

	resp, err := p.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// EmbedTexts embeds texts in one request, ordering results by the returned index.
func (p *OpenAIProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	resp, err := p.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	slots := newEmbeddingSlots(len(texts))
	result := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if err := slots.claim(data.Index); err != nil {
			return nil, err
		}
		if p.expectedSize > 0 && len(data.Embedding) != p.expectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", data.Index, len(data.Embedding), p.expectedSize)
		}
		result[data.Index] = data.Embedding
	}

	return result, nil
}
