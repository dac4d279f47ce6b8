package retrieval

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"questionnaire-agent/internal/db"
	"questionnaire-agent/internal/repository"
)

// fakeEmbedder maps each text to a 3-dim vector keyed on which topic words
// it contains, so similarity search is deterministic.
type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0.1, 0.1, 0.1}
		if strings.Contains(t, "encryption") {
			v = []float32{1, 0, 0}
		} else if strings.Contains(t, "backup") {
			v = []float32{0, 1, 0}
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T) (*Store, *fakeEmbedder) {
	t.Helper()
	conn, err := db.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(conn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	emb := &fakeEmbedder{}
	return NewStore(repository.NewChunkRepository(conn), emb, zap.NewNop()), emb
}

func TestIndexDocumentCounts(t *testing.T) {
	store, _ := newTestStore(t)

	text := strings.Repeat("All customer data uses encryption at rest. ", 40)
	sections, citations, err := store.IndexDocument(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("IndexDocument returned error: %v", err)
	}
	if sections == 0 || citations == 0 {
		t.Fatalf("expected non-zero chunk counts, got %d/%d", sections, citations)
	}
	if citations <= sections {
		t.Errorf("citation chunks should outnumber section chunks: %d vs %d", citations, sections)
	}
}

func TestIndexDocumentReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.IndexDocument(ctx, "doc-1", strings.Repeat("encryption policy. ", 100)); err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	sections, _, err := store.IndexDocument(ctx, "doc-1", "A single short backup note.")
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if sections != 1 {
		t.Fatalf("expected 1 section chunk after reindex, got %d", sections)
	}

	hits, err := store.Search(ctx, "anything", 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("old chunks survived reindex: %d section chunks", len(hits))
	}
}

func TestIndexDocumentEmptyText(t *testing.T) {
	store, _ := newTestStore(t)
	if _, _, err := store.IndexDocument(context.Background(), "doc-1", "   "); err == nil {
		t.Errorf("expected error for empty document")
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.IndexDocument(ctx, "doc-enc", "Our encryption standard covers all storage."); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if _, _, err := store.IndexDocument(ctx, "doc-bak", "Nightly backup jobs are verified weekly."); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	hits, err := store.Search(ctx, "tell me about encryption", 1)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Chunk.DocumentID != "doc-enc" {
		t.Errorf("expected encryption document first, got %s (score %f)",
			hits[0].Chunk.DocumentID, hits[0].Score)
	}
}

func TestSearchEmbedFailure(t *testing.T) {
	store, emb := newTestStore(t)
	emb.fail = true
	if _, err := store.Search(context.Background(), "query", 3); err == nil {
		t.Errorf("expected error when embedding fails")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.75, 0}
	decoded, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatalf("DecodeVector returned error: %v", err)
	}
	if len(decoded) != len(v) {
		t.Fatalf("length mismatch: %d vs %d", len(decoded), len(v))
	}
	for i := range v {
		if decoded[i] != v[i] {
			t.Errorf("component %d: %f != %f", i, decoded[i], v[i])
		}
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Errorf("expected error for truncated blob")
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors should score 1, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors should score 0, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %f", got)
	}
	if got := Cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("dimension mismatch should score 0, got %f", got)
	}
}
