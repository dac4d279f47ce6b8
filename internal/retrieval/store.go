package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/splitter"
)

// Store indexes document text into embedded chunks and answers similarity
// queries over them.
type Store struct {
	chunks   repository.ChunkRepository
	embedder Embedder
	logger   *zap.Logger
}

// ScoredChunk is one search hit with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

func NewStore(chunks repository.ChunkRepository, embedder Embedder, logger *zap.Logger) *Store {
	return &Store{chunks: chunks, embedder: embedder, logger: logger}
}

// IndexDocument splits text into section and citation chunks, embeds them,
// and replaces any previously indexed chunks for the document. Returns the
// section and citation chunk counts.
func (s *Store) IndexDocument(ctx context.Context, documentID, text string) (int, int, error) {
	sections := splitter.Section().Split(text)
	citations := splitter.Citation().Split(text)
	if len(sections) == 0 {
		return 0, 0, fmt.Errorf("document %s produced no chunks", documentID)
	}

	all := append(append([]string{}, sections...), citations...)
	vectors, err := s.embedder.Embed(ctx, all)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to embed document %s: %w", documentID, err)
	}

	chunks := make([]models.Chunk, 0, len(all))
	for i, content := range sections {
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_sec_%d", documentID, i),
			DocumentID: documentID,
			ChunkType:  models.ChunkTypeSection,
			Content:    content,
			Embedding:  EncodeVector(vectors[i]),
			Position:   i,
		})
	}
	for i, content := range citations {
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_cit_%d", documentID, i),
			DocumentID: documentID,
			ChunkType:  models.ChunkTypeCitation,
			Content:    content,
			Embedding:  EncodeVector(vectors[len(sections)+i]),
			Position:   i,
		})
	}

	if err := s.chunks.ReplaceForDocument(ctx, documentID, chunks); err != nil {
		return 0, 0, fmt.Errorf("failed to store chunks for %s: %w", documentID, err)
	}

	s.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("section_chunks", len(sections)),
		zap.Int("citation_chunks", len(citations)))
	return len(sections), len(citations), nil
}

// Search returns the k section chunks most similar to the query, best first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := vectors[0]

	candidates, err := s.chunks.ListByType(ctx, models.ChunkTypeSection)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		vec, err := DecodeVector(c.Embedding)
		if err != nil {
			s.logger.Warn("skipping chunk with corrupt embedding",
				zap.String("chunk_id", c.ID), zap.Error(err))
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: Cosine(queryVec, vec)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
