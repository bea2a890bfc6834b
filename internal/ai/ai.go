// Package ai is a stateless HTTP gateway to a local Ollama-compatible
// runtime, providing embedding and chat completion over two endpoints.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ponderjournal/ponder/internal/errs"
)

const (
	defaultTimeout = 60 * time.Second
	embeddingsPath = "/api/embeddings"
	chatPath       = "/api/chat"
)

// Role is a chat message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat conversation, sent in order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Gateway is a stateless client against a single Ollama-compatible base URL.
// Retries, if any, are the caller's policy.
type Gateway struct {
	baseURL string
	client  *http.Client
}

// New builds a Gateway against baseURL with an explicit request timeout
// (never the zero-value default client).
func New(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text under model.
func (g *Gateway) Embed(ctx context.Context, model, text string) ([]float32, error) {
	var resp embedResponse
	if err := g.post(ctx, embeddingsPath, embedRequest{Model: model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, errs.AI("embed", errs.InvalidResponse)
	}
	return resp.Embedding, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Chat sends messages in order and returns the assistant's single,
// non-streamed reply.
func (g *Gateway) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	var resp chatResponse
	req := chatRequest{Model: model, Messages: messages, Stream: false}
	if err := g.post(ctx, chatPath, req, &resp); err != nil {
		return "", err
	}
	if resp.Message.Content == "" {
		return "", errs.AI("chat", errs.InvalidResponse)
	}
	return resp.Message.Content, nil
}

// post issues a JSON POST to g.baseURL+path, classifying failures per
// spec §4.7: transport failure is OllamaOffline, 404 is ModelNotFound, any
// other non-2xx is InvalidResponse.
func (g *Gateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.AI("encode-request", errs.InvalidResponse)
	}

	url := g.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errs.AI("build-request", errs.InvalidResponse)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return errs.AI(fmt.Sprintf("post %s", path), errs.OllamaOffline)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errs.AI(fmt.Sprintf("post %s", path), errs.ModelNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.AI(fmt.Sprintf("post %s: status %d", path, resp.StatusCode), errs.InvalidResponse)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.AI(fmt.Sprintf("read-response %s", path), errs.InvalidResponse)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.AI(fmt.Sprintf("decode-response %s", path), errs.InvalidResponse)
	}
	return nil
}
