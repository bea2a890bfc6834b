package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ponderjournal/ponder/internal/ai"
	"github.com/ponderjournal/ponder/internal/crypto"
	"github.com/ponderjournal/ponder/internal/store"
	"github.com/ponderjournal/ponder/internal/vector"
)

func unitVec(axis int) []float32 {
	v := make([]float32, vector.Dim)
	v[axis] = 1
	return v
}

const testPassphrase = "pw"

func newEmbedStub(t *testing.T, vec []float32) *ai.Gateway {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(struct {
			Embedding []float32 `json:"embedding"`
		}{Embedding: vec})
	}))
	t.Cleanup(srv.Close)
	return ai.New(srv.URL, 0)
}

// seedEntry writes an encrypted entry file, registers it in db, and inserts
// a single embedding row with score (cosine similarity to [1,0]) pinned by
// vec's direction relative to the query vector used below.
func seedEntry(t *testing.T, root string, db *store.DB, date, text string, vec []float32) int64 {
	t.Helper()
	path := filepath.Join(date+".md.age")
	if err := crypto.EncryptFile(writeTempFile(t, text), filepath.Join(root, path), testPassphrase); err != nil {
		t.Fatalf("EncryptFile: %v", err)
	}
	id, err := db.Entries.UpsertEntry(path, date, crypto.Checksum([]byte(text)), len(text))
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := db.Embeddings.InsertEmbedding(id, 0, vec, "chk"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}
	return id
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plain.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSearch_DeterministicOrderForEqualScores(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "ponder.db")
	db, err := store.Open(dbPath, testPassphrase)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Every entry gets the identical vector as the query, so every hit ties
	// at score 1.0 - the case where map-iteration order used to leak into
	// the final ranking.
	vec := unitVec(0)
	seedEntry(t, root, db, "2026-01-01", "alpha entry body", vec)
	seedEntry(t, root, db, "2026-01-02", "bravo entry body", vec)
	seedEntry(t, root, db, "2026-01-03", "charlie entry body", vec)

	gateway := newEmbedStub(t, vec)
	p := &Pipeline{Root: root, DB: db, AI: gateway, Passphrase: testPassphrase}

	first, err := p.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len(first) = %d; want 3", len(first))
	}

	for i := 0; i < 10; i++ {
		got, err := p.Search(context.Background(), "query", 10)
		if err != nil {
			t.Fatalf("Search (run %d): %v", i, err)
		}
		for j := range got {
			if got[j].Date != first[j].Date {
				t.Fatalf("run %d: order changed at position %d: got %s, want %s", i, j, got[j].Date, first[j].Date)
			}
		}
	}
}
