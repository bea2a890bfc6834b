package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ponderjournal/ponder/internal/errs"
)

func TestEmbed_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != embeddingsPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	vec, err := g.Embed(context.Background(), "nomic-embed-text", "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len(vec) = %d; want 3", len(vec))
	}
}

func TestEmbed_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	_, err := g.Embed(context.Background(), "missing-model", "hello")
	if !errs.Is(err, errs.ModelNotFound) {
		t.Fatalf("err = %v; want ModelNotFound", err)
	}
}

func TestEmbed_OllamaOffline(t *testing.T) {
	g := New("http://127.0.0.1:1", 0)
	_, err := g.Embed(context.Background(), "m", "hello")
	if !errs.Is(err, errs.OllamaOffline) {
		t.Fatalf("err = %v; want OllamaOffline", err)
	}
}

func TestEmbed_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	_, err := g.Embed(context.Background(), "m", "hello")
	if !errs.Is(err, errs.InvalidResponse) {
		t.Fatalf("err = %v; want InvalidResponse", err)
	}
}

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Fatal("stream must be false")
		}
		if len(req.Messages) != 2 {
			t.Fatalf("len(messages) = %d; want 2", len(req.Messages))
		}
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: RoleAssistant, Content: "reply"}})
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	reply, err := g.Chat(context.Background(), "llama3", []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "reply" {
		t.Fatalf("reply = %q; want %q", reply, "reply")
	}
}

func TestChat_EmptyContentIsInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	_, err := g.Chat(context.Background(), "m", nil)
	if !errs.Is(err, errs.InvalidResponse) {
		t.Fatalf("err = %v; want InvalidResponse", err)
	}
}
