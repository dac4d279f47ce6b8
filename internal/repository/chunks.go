package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

type ChunkRepository interface {
	ReplaceForDocument(ctx context.Context, documentID string, chunks []models.Chunk) error
	ListByType(ctx context.Context, chunkType string) ([]models.Chunk, error)
}

type chunkRepository struct {
	db *sqlx.DB
}

func NewChunkRepository(db *sqlx.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// ReplaceForDocument swaps a document's chunks atomically so retrieval never
// sees a half-indexed document.
func (r *chunkRepository) ReplaceForDocument(ctx context.Context, documentID string, chunks []models.Chunk) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return err
	}
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, chunk_type, content, embedding, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.ChunkType, c.Content, c.Embedding, c.Position)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *chunkRepository) ListByType(ctx context.Context, chunkType string) ([]models.Chunk, error) {
	chunks := []models.Chunk{}
	err := r.db.SelectContext(ctx, &chunks,
		`SELECT id, document_id, chunk_type, content, embedding, position
		 FROM chunks WHERE chunk_type = ? ORDER BY document_id, position`, chunkType)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}
