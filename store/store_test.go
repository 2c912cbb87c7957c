//go:build cgo

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPublication(uid string) Publication {
	return Publication{
		UID:         uid,
		Title:       "Bone loss in orbit",
		Authors:     []string{"Smith, J", "Lee, K"},
		Year:        2021,
		DOI:         "10.1000/xyz",
		Mission:     "ISS-64",
		Organism:    "mouse",
		Environment: "microgravity",
		Keywords:    []string{"bone", "microgravity"},
		Source:      "catalog",
		Content:     "Mice were exposed to microgravity. Bone density fell.",
		ContentHash: "hash-" + uid,
		Status:      "ready",
	}
}

func TestUpsertAndGetPublication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertPublication(ctx, testPublication("p-001"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.GetPublication(ctx, "p-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Bone loss in orbit" || got.Year != 2021 {
		t.Errorf("got %+v", got)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Smith, J" {
		t.Errorf("authors = %v", got.Authors)
	}
	if got.Content == "" {
		t.Error("content not round-tripped")
	}
}

func TestUpsertPublicationUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertPublication(ctx, testPublication("p-001"))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := testPublication("p-001")
	updated.Title = "Revised title"
	updated.ContentHash = "hash-v2"
	if _, err := s.UpsertPublication(ctx, updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetPublication(ctx, "p-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != first {
		t.Errorf("row id changed on upsert: %d -> %d", first, got.ID)
	}
	if got.Title != "Revised title" || got.ContentHash != "hash-v2" {
		t.Errorf("update not applied: %+v", got)
	}

	pubs, err := s.ListPublications(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pubs) != 1 {
		t.Errorf("got %d publications, want 1", len(pubs))
	}
}

func TestGetPublicationMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetPublication(context.Background(), "absent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestInsertAndGetChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, err := s.UpsertPublication(ctx, testPublication("p-001"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	chunks := []Chunk{
		{PublicationID: pubID, Section: "intro", Content: "First chunk text.", ChunkIndex: 0, CharStart: 0, CharEnd: 17},
		{PublicationID: pubID, Section: "intro", Content: "Second chunk text.", ChunkIndex: 1, CharStart: 10, CharEnd: 28},
	}
	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}
	if len(ids) != 2 || ids[0] == 0 || ids[1] == 0 {
		t.Fatalf("chunk ids = %v", ids)
	}

	got, err := s.GetChunksByPublication(ctx, pubID)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if got[0].ChunkIndex != 0 || got[1].ChunkIndex != 1 {
		t.Error("chunks not in document order")
	}
	if got[0].ContentHash == "" {
		t.Error("content hash not computed on insert")
	}
}

func TestInsertEmbeddingDimensionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, _ := s.UpsertPublication(ctx, testPublication("p-001"))
	ids, err := s.InsertChunks(ctx, []Chunk{
		{PublicationID: pubID, Content: "Chunk for embedding.", ChunkIndex: 0, CharEnd: 20},
	})
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	if err := s.InsertEmbedding(ctx, ids[0], []float32{1, 2, 3}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := s.InsertEmbedding(ctx, ids[0], []float32{1, 2, 3, 4}); err != nil {
		t.Errorf("InsertEmbedding: %v", err)
	}

	has, err := s.ChunkHasEmbedding(ctx, ids[0])
	if err != nil {
		t.Fatalf("ChunkHasEmbedding: %v", err)
	}
	if !has {
		t.Error("embedding not stored")
	}
}

func TestVectorSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, _ := s.UpsertPublication(ctx, testPublication("p-001"))
	ids, err := s.InsertChunks(ctx, []Chunk{
		{PublicationID: pubID, Content: "near chunk", ChunkIndex: 0, CharEnd: 10},
		{PublicationID: pubID, Content: "far chunk", ChunkIndex: 1, CharStart: 11, CharEnd: 20},
	})
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})
	s.InsertEmbedding(ctx, ids[1], []float32{0, 1, 0, 0})

	results, err := s.VectorSearch(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != ids[0] {
		t.Errorf("nearest chunk = %d, want %d", results[0].ChunkID, ids[0])
	}
	if results[0].PublicationUID != "p-001" {
		t.Errorf("publication uid = %q", results[0].PublicationUID)
	}
}

func TestFTSSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, _ := s.UpsertPublication(ctx, testPublication("p-001"))
	_, err := s.InsertChunks(ctx, []Chunk{
		{PublicationID: pubID, Content: "Microgravity affects bone density in mice.", ChunkIndex: 0, CharEnd: 42},
		{PublicationID: pubID, Content: "Radiation exposure was also measured.", ChunkIndex: 1, CharStart: 43, CharEnd: 80},
	})
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	results, err := s.FTSSearch(ctx, "microgravity", 10)
	if err != nil {
		t.Fatalf("fts search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Title != "Bone loss in orbit" {
		t.Errorf("title = %q", results[0].Title)
	}
}

func TestReplaceGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []Entity{
		{EntityUID: "organism_mice", Name: "mice", EntityType: "organism", Frequency: 3},
		{EntityUID: "condition_microgravity", Name: "microgravity", EntityType: "condition", Frequency: 4},
	}
	rels := []Relationship{
		{SourceUID: "condition_microgravity", TargetUID: "organism_mice", RelationType: "affects", Strength: 1.0, SourceDoc: "p-001"},
	}
	if err := s.ReplaceGraph(ctx, first, rels); err != nil {
		t.Fatalf("replace graph: %v", err)
	}

	// A second run fully replaces the previous rows.
	second := []Entity{
		{EntityUID: "organism_rats", Name: "rats", EntityType: "organism", Frequency: 2},
	}
	if err := s.ReplaceGraph(ctx, second, nil); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatalf("all entities: %v", err)
	}
	if len(entities) != 1 || entities[0].EntityUID != "organism_rats" {
		t.Errorf("entities = %+v, want only organism_rats", entities)
	}

	remaining, err := s.AllRelationships(ctx)
	if err != nil {
		t.Fatalf("all relationships: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("got %d relationships, want 0 after replacement", len(remaining))
	}
}

func TestGetEntitiesByUIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.ReplaceGraph(ctx, []Entity{
		{EntityUID: "organism_mice", Name: "mice", EntityType: "organism", Frequency: 3},
		{EntityUID: "location_bone", Name: "bone", EntityType: "location", Frequency: 2},
	}, nil)
	if err != nil {
		t.Fatalf("replace graph: %v", err)
	}

	got, err := s.GetEntitiesByUIDs(ctx, []string{"organism_mice", "absent"})
	if err != nil {
		t.Fatalf("get entities: %v", err)
	}
	if len(got) != 1 || got[0].EntityUID != "organism_mice" {
		t.Errorf("got %+v", got)
	}

	if got, _ := s.GetEntitiesByUIDs(ctx, nil); got != nil {
		t.Errorf("empty uid list should return nil, got %v", got)
	}
}

func TestGraphRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestGraphRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestGraphRun on empty db = %v, want sql.ErrNoRows", err)
	}

	for i, graph := range []string{`{"v":1}`, `{"v":2}`} {
		_, err := s.SaveGraphRun(ctx, GraphRun{
			TotalDocuments: i + 1,
			ExtractedAt:    "2026-01-01T00:00:00Z",
			Graph:          graph,
		})
		if err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
	}

	run, err := s.LatestGraphRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run.Graph != `{"v":2}` || run.TotalDocuments != 2 {
		t.Errorf("latest run = %+v, want the second run", run)
	}
}

func TestDeletePublicationCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, _ := s.UpsertPublication(ctx, testPublication("p-001"))
	ids, err := s.InsertChunks(ctx, []Chunk{
		{PublicationID: pubID, Content: "chunk to delete", ChunkIndex: 0, CharEnd: 15},
	})
	if err != nil {
		t.Fatalf("insert chunks: %v", err)
	}
	s.InsertEmbedding(ctx, ids[0], []float32{1, 0, 0, 0})

	if err := s.DeletePublication(ctx, "p-001"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetPublication(ctx, "p-001"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("publication still present: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Chunks != 0 || stats.Embeddings != 0 {
		t.Errorf("stats after delete = %+v, want zero chunks and embeddings", stats)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pubID, _ := s.UpsertPublication(ctx, testPublication("p-001"))
	s.InsertChunks(ctx, []Chunk{
		{PublicationID: pubID, Content: "a chunk", ChunkIndex: 0, CharEnd: 7},
	})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Publications != 1 || stats.Chunks != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
