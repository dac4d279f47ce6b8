package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"questionnaire-agent/internal/extractor"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/retrieval"
	"questionnaire-agent/internal/storage"
	"questionnaire-agent/internal/utils"
)

type DocumentService interface {
	IndexAsync(ctx context.Context, filename string, data []byte) (*models.Job, error)
	List(ctx context.Context) ([]models.DocumentRegistryItem, error)

	// IndexIntoCorpus is the shared ingestion pipeline, also used by project
	// creation to make the questionnaire itself retrievable.
	IndexIntoCorpus(ctx context.Context, docID, filename string, data []byte, archiveKey string) (int, int, error)
}

type documentService struct {
	documents repository.DocumentRepository
	projects  repository.ProjectRepository
	store     *retrieval.Store
	storage   storage.Storage
	ledger    *jobs.Ledger
	runner    *jobs.Runner
	logger    *zap.Logger
}

func NewDocumentService(
	documents repository.DocumentRepository,
	projects repository.ProjectRepository,
	store *retrieval.Store,
	archive storage.Storage,
	ledger *jobs.Ledger,
	runner *jobs.Runner,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		documents: documents,
		projects:  projects,
		store:     store,
		storage:   archive,
		ledger:    ledger,
		runner:    runner,
		logger:    logger,
	}
}

// IndexAsync validates the upload, records an index_document job, and kicks
// off the indexing pipeline in the background. The caller polls the returned
// job for the outcome.
func (s *documentService) IndexAsync(ctx context.Context, filename string, data []byte) (*models.Job, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, utils.NewBadRequestError("Missing filename")
	}
	if _, err := extractor.FileType(filename); err != nil {
		return nil, utils.NewBadRequestError(err.Error())
	}
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Empty file")
	}

	job, err := s.ledger.Submit(ctx, models.JobTypeIndexDocument, nil)
	if err != nil {
		return nil, utils.NewInternalError("Failed to record indexing job")
	}

	s.runner.Run(job, func(ctx context.Context) (string, string, error) {
		docID := utils.NewDocumentID()
		section, citation, err := s.IndexIntoCorpus(ctx, docID, filename, data, storage.CorpusKey(docID, filename))
		if err != nil {
			return "", "", err
		}
		payload := fmt.Sprintf(`{"document_id":%q,"section_count":%d,"citation_count":%d}`,
			docID, section, citation)
		return docID, payload, nil
	})
	return job, nil
}

func (s *documentService) List(ctx context.Context) ([]models.DocumentRegistryItem, error) {
	items, err := s.documents.List(ctx)
	if err != nil {
		s.logger.Error("failed to list documents", zap.Error(err))
		return nil, utils.NewInternalError("Failed to list documents")
	}
	return items, nil
}

// IndexIntoCorpus runs the ingestion pipeline: archive the original bytes,
// extract text, index chunks, record the document in the registry, and flag
// every whole-corpus project as stale.
func (s *documentService) IndexIntoCorpus(ctx context.Context, docID, filename string, data []byte, archiveKey string) (int, int, error) {
	if err := s.storage.Upload(ctx, archiveKey, data, contentTypeFor(filename)); err != nil {
		return 0, 0, fmt.Errorf("failed to archive %s: %w", filename, err)
	}

	text, err := extractor.Extract(filename, data)
	if err != nil {
		return 0, 0, err
	}

	section, citation, err := s.store.IndexDocument(ctx, docID, text)
	if err != nil {
		return 0, 0, err
	}

	if err := s.documents.UpsertRegistry(ctx, docID, filename, section, citation); err != nil {
		return 0, 0, fmt.Errorf("failed to update document registry: %w", err)
	}

	// the corpus changed; answers generated against the old corpus are stale
	flipped, err := s.projects.MarkAllDocsOutdated(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to flag stale projects: %w", err)
	}
	if flipped > 0 {
		s.logger.Info("flagged projects as outdated after corpus change",
			zap.Int64("projects", flipped),
			zap.String("document_id", docID))
	}

	return section, citation, nil
}

func contentTypeFor(filename string) string {
	ext, err := extractor.FileType(filename)
	if err != nil {
		return "application/octet-stream"
	}
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
