// Package rag implements Ponder's retrieval-augmented query pipeline: ask,
// search, and reflect, all built on the same embed → search_similar_chunks →
// decrypt-to-temp → rechunk → chat sequence.
package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ponderjournal/ponder/internal/ai"
	"github.com/ponderjournal/ponder/internal/chunk"
	"github.com/ponderjournal/ponder/internal/securetemp"
	"github.com/ponderjournal/ponder/internal/store"
)

// EmbedModel and ChatModel name the Ollama models used for retrieval and
// generation respectively.
const (
	EmbedModel = "nomic-embed-text"
	ChatModel  = "llama3"
)

const systemPrompt = "You are Ponder, a private journaling assistant. Answer only from the supplied context. If the context is empty, say so plainly."

// Pipeline bundles the repositories and gateway every RAG operation needs.
type Pipeline struct {
	Root       string
	DB         *store.DB
	AI         *ai.Gateway
	Passphrase string
}

// Ask answers query using the top-k most similar chunks as chat context.
func (p *Pipeline) Ask(ctx context.Context, query string, k int) (string, error) {
	retrieved, err := p.buildContext(ctx, query, k)
	if err != nil {
		return "", err
	}

	userContent := query
	if retrieved != "" {
		userContent = fmt.Sprintf("%s\n\nContext:\n%s", query, retrieved)
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: userContent},
	}
	return p.AI.Chat(ctx, ChatModel, messages)
}

// SearchHit is one scored result from Search.
type SearchHit struct {
	Date    string
	Excerpt string
	Score   float64
}

// Search returns the top-k hits for query, sorted by score descending,
// without calling chat.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	queryVec, err := p.AI.Embed(ctx, EmbedModel, query)
	if err != nil {
		return nil, err
	}
	similar, err := p.DB.Embeddings.SearchSimilarChunks(queryVec, k)
	if err != nil {
		return nil, err
	}

	type cached struct {
		entry  *store.Entry
		chunks []string
	}
	entryCache := make(map[int64]cached)

	hits := make([]SearchHit, 0, len(similar))
	for _, hit := range similar {
		c, ok := entryCache[hit.EntryID]
		if !ok {
			entry, err := p.DB.Entries.GetEntryByID(hit.EntryID)
			if err != nil {
				return nil, err
			}
			chunks, err := p.decryptAndChunk(entry)
			if err != nil {
				return nil, err
			}
			c = cached{entry: entry, chunks: chunks}
			entryCache[hit.EntryID] = c
		}
		if hit.ChunkIdx < 0 || hit.ChunkIdx >= len(c.chunks) {
			continue
		}
		hits = append(hits, SearchHit{
			Date:    c.entry.Date,
			Excerpt: c.chunks[hit.ChunkIdx],
			Score:   hit.Score,
		})
	}

	// similar is already ordered by SearchSimilarChunks; iterating it
	// directly (instead of grouping through a map) keeps this sort's tie
	// order deterministic across runs.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

const reflectionPrompt = "Reflect on this journal entry. Identify the emotional tone, any recurring themes, and one gentle observation the author might find useful."

// Reflect loads the entry for date, decrypts it, and asks chat to reflect on
// it with a fixed prompt. Fails if the entry is absent.
func (p *Pipeline) Reflect(ctx context.Context, date string) (string, error) {
	entry, err := p.DB.Entries.GetEntryByDate(date)
	if err != nil {
		return "", err
	}

	text, err := p.readEntryPlaintext(entry)
	if err != nil {
		return "", err
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: reflectionPrompt},
		{Role: ai.RoleUser, Content: text},
	}
	return p.AI.Chat(ctx, ChatModel, messages)
}

// buildContext embeds query, retrieves the top-k similar chunks, groups them
// by entry to avoid redundant decryption, and assembles the
// "[Entry from YYYY-MM-DD]\n<chunk>" context blocks in score order.
func (p *Pipeline) buildContext(ctx context.Context, query string, k int) (string, error) {
	queryVec, err := p.AI.Embed(ctx, EmbedModel, query)
	if err != nil {
		return "", err
	}
	similar, err := p.DB.Embeddings.SearchSimilarChunks(queryVec, k)
	if err != nil {
		return "", err
	}
	if len(similar) == 0 {
		return "", nil
	}

	type cached struct {
		entry  *store.Entry
		chunks []string
	}
	entryCache := make(map[int64]cached)

	blocks := make([]string, 0, len(similar))
	for _, hit := range similar {
		c, ok := entryCache[hit.EntryID]
		if !ok {
			entry, err := p.DB.Entries.GetEntryByID(hit.EntryID)
			if err != nil {
				return "", err
			}
			chunks, err := p.decryptAndChunk(entry)
			if err != nil {
				return "", err
			}
			c = cached{entry: entry, chunks: chunks}
			entryCache[hit.EntryID] = c
		}
		if hit.ChunkIdx < 0 || hit.ChunkIdx >= len(c.chunks) {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Entry from %s]\n%s", c.entry.Date, c.chunks[hit.ChunkIdx]))
	}

	result := ""
	for i, b := range blocks {
		if i > 0 {
			result += "\n\n"
		}
		result += b
	}
	return result, nil
}

// decryptAndChunk decrypts entry to a scratch file and rechunks it with the
// exact (chunk_size, overlap) pinned constants used at edit time - the
// invariant spec §4.9 calls load-bearing.
func (p *Pipeline) decryptAndChunk(entry *store.Entry) ([]string, error) {
	text, err := p.readEntryPlaintext(entry)
	if err != nil {
		return nil, err
	}
	return chunk.Split(text, chunk.DefaultSize, chunk.DefaultOverlap), nil
}

func (p *Pipeline) readEntryPlaintext(entry *store.Entry) (string, error) {
	encPath := entry.Path
	if !filepath.IsAbs(encPath) {
		encPath = filepath.Join(p.Root, encPath)
	}
	return securetemp.ReadEncryptedString(encPath, p.Passphrase)
}
