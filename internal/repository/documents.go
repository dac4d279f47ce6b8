package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

type DocumentRepository interface {
	UpsertRegistry(ctx context.Context, documentID, filename string, sectionCount, citationCount int) error
	List(ctx context.Context) ([]models.DocumentRegistryItem, error)
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// UpsertRegistry records an indexed document; re-indexing the same document
// id refreshes its counts and filename.
func (r *documentRepository) UpsertRegistry(ctx context.Context, documentID, filename string, sectionCount, citationCount int) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_registry (document_id, filename, indexed_at, chunk_count_section, chunk_count_citation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_id) DO UPDATE SET
		   filename = excluded.filename,
		   indexed_at = excluded.indexed_at,
		   chunk_count_section = excluded.chunk_count_section,
		   chunk_count_citation = excluded.chunk_count_citation`,
		documentID, filename, now, sectionCount, citationCount, now,
	)
	return err
}

func (r *documentRepository) List(ctx context.Context) ([]models.DocumentRegistryItem, error) {
	items := []models.DocumentRegistryItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, document_id, filename, indexed_at, chunk_count_section, chunk_count_citation, created_at
		 FROM document_registry ORDER BY indexed_at DESC`)
	if err != nil {
		return nil, err
	}
	return items, nil
}
