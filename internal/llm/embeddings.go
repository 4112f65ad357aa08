package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EmbeddingsClient is a client for OpenAI-compatible embeddings endpoints.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	client       *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// All embeddings returned by EmbedTexts are validated against expectedSize.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       http.DefaultClient,
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts embeds texts in one request.
// Vectors are placed by the index the server reports, so out-of-order responses
// still line up with their inputs.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	data, err := c.post(ctx, EmbeddingsRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, err
	}
	if len(data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(data))
	}

	slots := newEmbeddingSlots(len(texts))
	result := make([][]float32, len(texts))
	for _, d := range data {
		if err := slots.claim(d.Index); err != nil {
			return nil, err
		}
		if len(d.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", d.Index, len(d.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		result[d.Index] = vec
	}

	return result, nil
}

func (c *EmbeddingsClient) post(ctx context.Context, payload EmbeddingsRequest) ([]EmbeddingData, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return decoded.Data, nil
}

// embeddingSlots tracks which input positions a response has filled.
type embeddingSlots []bool

func newEmbeddingSlots(n int) embeddingSlots {
	return make(embeddingSlots, n)
}

// claim marks index as filled. It fails for an index outside the input or one already seen.
func (s embeddingSlots) claim(index int) error {
	if index < 0 || index >= len(s) {
		return fmt.Errorf("embedding index %d out of range for %d inputs", index, len(s))
	}
	if s[index] {
		return fmt.Errorf("duplicate embedding index %d", index)
	}
	s[index] = true
	return nil
}
