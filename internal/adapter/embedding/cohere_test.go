package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEncodeQueries_RequestShape(t *testing.T) {
	var captured embedRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v2/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": map[string]interface{}{
				"float": [][]float32{{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	embedder := NewCohereEmbedder(server.URL, "embed-english-v3.0", "test-key", server.Client())

	vectors, err := embedder.EncodeQueries(context.Background(), []string{"geysers in yellowstone"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vectors %v", vectors)
	}

	if auth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if captured.Model != "embed-english-v3.0" {
		t.Errorf("expected model embed-english-v3.0, got %q", captured.Model)
	}
	if captured.InputType != "search_query" {
		t.Errorf("expected input_type search_query, got %q", captured.InputType)
	}
	if len(captured.EmbeddingTypes) != 1 || captured.EmbeddingTypes[0] != "float" {
		t.Errorf("expected embedding_types [float], got %v", captured.EmbeddingTypes)
	}
}

func TestEncodeDocuments_InputType(t *testing.T) {
	var captured embedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": map[string]interface{}{
				"float": [][]float32{{0.1}, {0.2}},
			},
		})
	}))
	defer server.Close()

	embedder := NewCohereEmbedder(server.URL, "embed-english-v3.0", "test-key", server.Client())

	_, err := embedder.EncodeDocuments(context.Background(), []string{"chunk one", "chunk two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.InputType != "search_document" {
		t.Errorf("expected input_type search_document, got %q", captured.InputType)
	}
}

func TestEncode_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	embedder := NewCohereEmbedder(server.URL, "embed-english-v3.0", "bad-key", server.Client())

	_, err := embedder.EncodeQueries(context.Background(), []string{"q"})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestEncode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": map[string]interface{}{
				"float": [][]float32{{0.1}},
			},
		})
	}))
	defer server.Close()

	embedder := NewCohereEmbedder(server.URL, "embed-english-v3.0", "test-key", server.Client())

	_, err := embedder.EncodeQueries(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}
