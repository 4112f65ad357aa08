package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8081", "test-key", "test-model", 768)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("NewEmbeddingsClient() BaseURL = %v, want http://localhost:8081", client.BaseURL)
	}
	if client.ExpectedSize != 768 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 768", client.ExpectedSize)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantCount    int
	}{
		{
			name:         "successful embedding",
			texts:        []string{"Hello", "World"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/embeddings" {
					t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
				}

				var req EmbeddingsRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				if len(req.Input) != 2 {
					t.Errorf("request input length = %d, want 2", len(req.Input))
				}

				resp := EmbeddingsResponse{
					Data: []EmbeddingData{
						{Index: 0, Embedding: []float64{1, 0, 0, 0}},
						{Index: 1, Embedding: []float64{0, 1, 0, 0}},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called for empty input")
			},
			wantErr: true,
		},
		{
			name:         "wrong vector size",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(EmbeddingsResponse{
					Data: []EmbeddingData{{Embedding: []float64{1, 2, 3}}},
				})
			},
			wantErr: true,
		},
		{
			name:         "count mismatch",
			texts:        []string{"a", "b"},
			expectedSize: 2,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(EmbeddingsResponse{
					Data: []EmbeddingData{{Embedding: []float64{1, 2}}},
				})
			},
			wantErr: true,
		},
		{
			name:         "server error",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "test-key", "test-model", tt.expectedSize)
			vectors, err := client.EmbedTexts(context.Background(), tt.texts)

			if (err != nil) != tt.wantErr {
				t.Errorf("EmbedTexts() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(vectors) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d vectors, want %d", len(vectors), tt.wantCount)
			}
			for i, v := range vectors {
				if len(v) != tt.expectedSize {
					t.Errorf("vector %d has size %d, want %d", i, len(v), tt.expectedSize)
				}
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTextsPlacement(t *testing.T) {
	tests := []struct {
		name    string
		data    []EmbeddingData
		want    [][]float32
		wantErr bool
	}{
		{
			name: "in order",
			data: []EmbeddingData{
				{Index: 0, Embedding: []float64{1, 0}},
				{Index: 1, Embedding: []float64{0, 1}},
			},
			want: [][]float32{{1, 0}, {0, 1}},
		},
		{
			name: "shuffled response",
			data: []EmbeddingData{
				{Index: 1, Embedding: []float64{0, 1}},
				{Index: 0, Embedding: []float64{1, 0}},
			},
			want: [][]float32{{1, 0}, {0, 1}},
		},
		{
			name: "duplicate index",
			data: []EmbeddingData{
				{Index: 0, Embedding: []float64{1, 0}},
				{Index: 0, Embedding: []float64{0, 1}},
			},
			wantErr: true,
		},
		{
			name: "index out of range",
			data: []EmbeddingData{
				{Index: 0, Embedding: []float64{1, 0}},
				{Index: 2, Embedding: []float64{0, 1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(EmbeddingsResponse{Data: tt.data})
			}))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 2)
			vectors, err := client.EmbedTexts(context.Background(), []string{"first", "second"})

			if (err != nil) != tt.wantErr {
				t.Fatalf("EmbedTexts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for i := range tt.want {
				for j := range tt.want[i] {
					if vectors[i][j] != tt.want[i][j] {
						t.Errorf("EmbedTexts()[%d] = %v, want %v", i, vectors[i], tt.want[i])
						break
					}
				}
			}
		})
	}
}
