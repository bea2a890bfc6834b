package store

import (
	"testing"

	"github.com/ponderjournal/ponder/internal/vector"
)

func makeUnitVec(t *testing.T, axis int) []float32 {
	t.Helper()
	v := make([]float32, vector.Dim)
	v[axis] = 1
	return v
}

func TestInsertEmbeddingAndCount(t *testing.T) {
	db := openTestDB(t)
	entryID, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-05", "chk", 10)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	if err := db.Embeddings.InsertEmbedding(entryID, 0, makeUnitVec(t, 0), "chunk-chk-0"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}
	if err := db.Embeddings.InsertEmbedding(entryID, 1, makeUnitVec(t, 1), "chunk-chk-1"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}

	n, err := db.Embeddings.CountForEntry(entryID)
	if err != nil {
		t.Fatalf("CountForEntry: %v", err)
	}
	if n != 2 {
		t.Errorf("CountForEntry = %d; want 2", n)
	}
}

func TestInsertEmbedding_UpsertOnConflict(t *testing.T) {
	db := openTestDB(t)
	entryID, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-05", "chk", 10)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	if err := db.Embeddings.InsertEmbedding(entryID, 0, makeUnitVec(t, 0), "v1"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}
	if err := db.Embeddings.InsertEmbedding(entryID, 0, makeUnitVec(t, 2), "v2"); err != nil {
		t.Fatalf("InsertEmbedding (overwrite): %v", err)
	}

	n, err := db.Embeddings.CountForEntry(entryID)
	if err != nil {
		t.Fatalf("CountForEntry: %v", err)
	}
	if n != 1 {
		t.Errorf("CountForEntry = %d; want 1 (same chunk_idx should overwrite)", n)
	}
}

func TestDeleteEmbeddingsForEntry(t *testing.T) {
	db := openTestDB(t)
	entryID, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-05", "chk", 10)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := db.Embeddings.InsertEmbedding(entryID, 0, makeUnitVec(t, 0), "v1"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}

	if err := db.Embeddings.DeleteEmbeddingsForEntry(entryID); err != nil {
		t.Fatalf("DeleteEmbeddingsForEntry: %v", err)
	}

	n, err := db.Embeddings.CountForEntry(entryID)
	if err != nil {
		t.Fatalf("CountForEntry: %v", err)
	}
	if n != 0 {
		t.Errorf("CountForEntry after delete = %d; want 0", n)
	}
}

func TestSearchSimilarChunks_RanksByCosine(t *testing.T) {
	db := openTestDB(t)
	entryID, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-05", "chk", 10)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	// chunk 0 is identical to the query axis, chunk 1 is orthogonal.
	if err := db.Embeddings.InsertEmbedding(entryID, 0, makeUnitVec(t, 0), "v0"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}
	if err := db.Embeddings.InsertEmbedding(entryID, 1, makeUnitVec(t, 1), "v1"); err != nil {
		t.Fatalf("InsertEmbedding: %v", err)
	}

	hits, err := db.Embeddings.SearchSimilarChunks(makeUnitVec(t, 0), 10)
	if err != nil {
		t.Fatalf("SearchSimilarChunks: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d; want 2", len(hits))
	}
	if hits[0].ChunkIdx != 0 {
		t.Errorf("top hit ChunkIdx = %d; want 0 (exact match)", hits[0].ChunkIdx)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not sorted descending by score: %+v", hits)
	}
}

func TestSearchSimilarChunks_RespectsK(t *testing.T) {
	db := openTestDB(t)
	entryID, err := db.Entries.UpsertEntry("/j/e.md.age", "2026-03-05", "chk", 10)
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := db.Embeddings.InsertEmbedding(entryID, i, makeUnitVec(t, i), "v"); err != nil {
			t.Fatalf("InsertEmbedding(%d): %v", i, err)
		}
	}

	hits, err := db.Embeddings.SearchSimilarChunks(makeUnitVec(t, 0), 2)
	if err != nil {
		t.Fatalf("SearchSimilarChunks: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d; want 2", len(hits))
	}
}
