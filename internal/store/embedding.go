package store

import (
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ponderjournal/ponder/internal/errs"
	"github.com/ponderjournal/ponder/internal/vector"
)

// Embedding is one chunk's vector (spec §3).
type Embedding struct {
	ID        int64     `db:"id"`
	EntryID   int64     `db:"entry_id"`
	ChunkIdx  int       `db:"chunk_idx"`
	Vector    []byte    `db:"embedding"`
	Checksum  string    `db:"checksum"`
	CreatedAt time.Time `db:"created_at"`
}

// EmbeddingRepo provides CRUD and similarity search over embeddings.
type EmbeddingRepo struct {
	db *sqlx.DB
}

// InsertEmbedding rejects vectors of the wrong dimension and upserts by
// (entry_id, chunk_idx).
func (r *EmbeddingRepo) InsertEmbedding(entryID int64, chunkIdx int, vec []float32, checksum string) error {
	encoded, err := vector.Encode(vec)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO embeddings (entry_id, chunk_idx, embedding, checksum, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(entry_id, chunk_idx) DO UPDATE SET
			embedding = excluded.embedding,
			checksum = excluded.checksum,
			created_at = CURRENT_TIMESTAMP
	`, entryID, chunkIdx, encoded, checksum)
	if err != nil {
		return errs.Database("insert-embedding", err)
	}
	return nil
}

// DeleteEmbeddingsForEntry removes every embedding row for entryID, used by
// the edit pipeline before re-embedding changed content.
func (r *EmbeddingRepo) DeleteEmbeddingsForEntry(entryID int64) error {
	_, err := r.db.Exec("DELETE FROM embeddings WHERE entry_id = ?", entryID)
	if err != nil {
		return errs.Database("delete-embeddings", err)
	}
	return nil
}

// CountForEntry returns how many embedding rows exist for entryID (used by
// property P5 checks and by tests).
func (r *EmbeddingRepo) CountForEntry(entryID int64) (int, error) {
	var n int
	if err := r.db.Get(&n, "SELECT count(*) FROM embeddings WHERE entry_id = ?", entryID); err != nil {
		return 0, errs.Database("count-embeddings", err)
	}
	return n, nil
}

// SimilarChunk is one hit from SearchSimilarChunks.
type SimilarChunk struct {
	EntryID  int64
	ChunkIdx int
	Score    float64
}

// SearchSimilarChunks loads every embedding in the vault and returns the
// top-k by cosine similarity to queryVec, descending. Linear in corpus size
// - accepted for personal-scale journals per spec §4.5; an ANN index is the
// named future replacement, not attempted here.
func (r *EmbeddingRepo) SearchSimilarChunks(queryVec []float32, k int) ([]SimilarChunk, error) {
	var rows []Embedding
	if err := r.db.Select(&rows, "SELECT * FROM embeddings ORDER BY id ASC"); err != nil {
		return nil, errs.Database("search-similar-chunks", err)
	}

	hits := make([]SimilarChunk, 0, len(rows))
	for _, row := range rows {
		vec, err := vector.Decode(row.Vector)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SimilarChunk{
			EntryID:  row.EntryID,
			ChunkIdx: row.ChunkIdx,
			Score:    vector.Cosine(queryVec, vec),
		})
	}

	// Stable sort preserves insertion (id ascending) order on score ties,
	// satisfying spec §4.5's "any deterministic rule is acceptable".
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
