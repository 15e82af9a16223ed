package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/watchtower/internal/model"
)

func TestOllamaProvider_Review(t *testing.T) {
	var gotReq ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1:8b",
			Response:        "Claim 1 is supported by the auth log.\nVERDICT: APPROVED",
			Done:            true,
			PromptEvalCount: 120,
			EvalCount:       40,
		})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(model.LLMConfig{BaseURL: srv.URL, Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}

	result, err := p.Review(context.Background(), ReviewRequest{Snapshot: reviewSnapshot()})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	if !result.Approved {
		t.Error("Expected approved result")
	}
	if result.Model != "llama3.1:8b" {
		t.Errorf("Expected model echoed back, got %s", result.Model)
	}
	if result.TokensUsed != 160 {
		t.Errorf("Expected reported token counts summed, got %d", result.TokensUsed)
	}

	if gotReq.Stream {
		t.Error("Expected non-streaming request")
	}
	if gotReq.Model != "llama3.1:8b" {
		t.Errorf("Expected configured model in request, got %s", gotReq.Model)
	}
	if !strings.Contains(gotReq.Prompt, "Root logged in from 10.0.0.5") {
		t.Error("Expected the review prompt to carry the claim under review")
	}
}

func TestOllamaProvider_Review_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "mistral",
			Response: "Claim 1 cites evidence that says the opposite.\nVERDICT: REJECTED",
			Done:     true,
		})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(model.LLMConfig{BaseURL: srv.URL, Model: "mistral"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Review(context.Background(), ReviewRequest{Snapshot: reviewSnapshot()})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if result.Approved {
		t.Error("Expected rejected result")
	}
	if !strings.Contains(result.Findings, "says the opposite") {
		t.Error("Expected reviewer findings preserved")
	}
	if result.TokensUsed == 0 {
		t.Error("Expected token estimate when the server reports no counts")
	}
}

func TestOllamaProvider_Review_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model 'missing' not found"})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(model.LLMConfig{BaseURL: srv.URL, Model: "missing"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Review(context.Background(), ReviewRequest{Snapshot: reviewSnapshot()})
	if err == nil {
		t.Fatal("Expected error from API failure")
	}
	if !strings.Contains(err.Error(), "model 'missing' not found") {
		t.Errorf("Expected server error surfaced, got: %v", err)
	}
}

func TestOllamaProvider_Review_RequiresModel(t *testing.T) {
	p, err := NewOllamaProvider(model.LLMConfig{BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Review(context.Background(), ReviewRequest{Snapshot: reviewSnapshot()}); err == nil {
		t.Error("Expected error when no model is configured")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(model.LLMConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}

	srv.Close()
	if p.IsAvailable(context.Background()) {
		t.Error("Expected provider unavailable after server shutdown")
	}
}

func TestNewProvider_Selection(t *testing.T) {
	p, err := NewProvider(model.LLMConfig{})
	if err != nil || p != nil {
		t.Errorf("Expected disabled provider for empty config, got %v, %v", p, err)
	}

	p, err = NewProvider(model.LLMConfig{Provider: "ollama", Model: "mistral"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %s", p.Name())
	}

	p, err = NewProvider(model.LLMConfig{Provider: "openai", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Expected openai provider, got %s", p.Name())
	}

	if _, err := NewProvider(model.LLMConfig{Provider: "oracle-of-delphi"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
