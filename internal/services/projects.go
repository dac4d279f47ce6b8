package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"questionnaire-agent/internal/extractor"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/questionnaire"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/storage"
	"questionnaire-agent/internal/utils"
)

// StatusReport is the status endpoint's body: the project's state machine
// position plus review progress over its generated answers.
type StatusReport struct {
	ProjectID       int64                `json:"project_id"`
	Status          models.ProjectStatus `json:"status"`
	AnswersReviewed int                  `json:"answers_reviewed"`
	AnswersTotal    int                  `json:"answers_total"`
}

type ProjectService interface {
	CreateAsync(ctx context.Context, name, filename string, data []byte) (*models.Job, error)
	UpdateAsync(ctx context.Context, projectID int64, name, scope *string) (*models.Job, error)
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id int64) (*models.ProjectDetail, error)
	Status(ctx context.Context, id int64) (*StatusReport, error)
}

type projectService struct {
	projects  repository.ProjectRepository
	answers   repository.AnswerRepository
	documents DocumentService
	ledger    *jobs.Ledger
	runner    *jobs.Runner
	logger    *zap.Logger
}

func NewProjectService(
	projects repository.ProjectRepository,
	answers repository.AnswerRepository,
	documents DocumentService,
	ledger *jobs.Ledger,
	runner *jobs.Runner,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projects:  projects,
		answers:   answers,
		documents: documents,
		ledger:    ledger,
		runner:    runner,
		logger:    logger,
	}
}

// CreateAsync records a create_project job and builds the project in the
// background: index the questionnaire into the corpus, extract its
// questions, and leave the project READY. The job's entity_id carries the
// new project id once it completes.
func (s *projectService) CreateAsync(ctx context.Context, name, filename string, data []byte) (*models.Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.NewBadRequestError("Missing project name")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, utils.NewBadRequestError("Missing filename")
	}
	if _, err := extractor.FileType(filename); err != nil {
		return nil, utils.NewBadRequestError(err.Error())
	}
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Empty file")
	}

	job, err := s.ledger.Submit(ctx, models.JobTypeCreateProject, nil)
	if err != nil {
		return nil, utils.NewInternalError("Failed to record project creation job")
	}

	s.runner.Run(job, func(ctx context.Context) (string, string, error) {
		return s.buildProject(ctx, name, filename, data)
	})
	return job, nil
}

func (s *projectService) buildProject(ctx context.Context, name, filename string, data []byte) (string, string, error) {
	docID := utils.NewDocumentID()

	project := &models.Project{
		Name:   name,
		Scope:  models.ScopeAllDocs,
		Status: models.ProjectPending,
	}
	if err := s.projects.Create(ctx, project, nil); err != nil {
		return "", "", fmt.Errorf("failed to create project: %w", err)
	}
	if err := s.projects.UpdateStatus(ctx, project.ID, models.ProjectIndexing); err != nil {
		return "", "", err
	}

	// the questionnaire joins the corpus; this also flips existing projects
	// to OUTDATED, which is why READY is only written afterwards
	if _, _, err := s.documents.IndexIntoCorpus(ctx, docID, filename, data,
		storage.QuestionnaireKey(docID, filename)); err != nil {
		return "", "", err
	}

	text, err := extractor.Extract(filename, data)
	if err != nil {
		return "", "", err
	}

	parsed := questionnaire.Parse(text)
	questions := make([]models.Question, len(parsed))
	for i, pq := range parsed {
		sectionID, sectionTitle := pq.SectionID, pq.SectionTitle
		questions[i] = models.Question{
			SectionID:    &sectionID,
			SectionTitle: &sectionTitle,
			QuestionText: pq.QuestionText,
			OrderIndex:   pq.OrderIndex,
		}
	}
	// zero questions is a valid outcome (non-questionnaire input), surfaced
	// through the project detail rather than a failed job
	if err := s.projects.AddQuestions(ctx, project.ID, questions); err != nil {
		return "", "", fmt.Errorf("failed to store questions: %w", err)
	}

	if err := s.projects.SetQuestionnaireDocument(ctx, project.ID, docID); err != nil {
		return "", "", err
	}
	if err := s.projects.UpdateStatus(ctx, project.ID, models.ProjectReady); err != nil {
		return "", "", err
	}

	s.logger.Info("project built",
		zap.Int64("project_id", project.ID),
		zap.Int("questions", len(questions)))
	return strconv.FormatInt(project.ID, 10),
		fmt.Sprintf(`{"project_id":%d}`, project.ID), nil
}

// UpdateAsync records an update_project job that applies the given partial
// fields. Both fields are optional; at least one must be present.
func (s *projectService) UpdateAsync(ctx context.Context, projectID int64, name, scope *string) (*models.Job, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}
	if name == nil && scope == nil {
		return nil, utils.NewBadRequestError("Provide at least one of name or scope")
	}

	entityID := strconv.FormatInt(projectID, 10)
	job, err := s.ledger.Submit(ctx, models.JobTypeUpdateProject, &entityID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to record project update job")
	}

	s.runner.Run(job, func(ctx context.Context) (string, string, error) {
		if err := s.projects.UpdateFields(ctx, projectID, name, scope); err != nil {
			return "", "", fmt.Errorf("failed to update project: %w", err)
		}
		return entityID, fmt.Sprintf(`{"project_id":%d}`, projectID), nil
	})
	return job, nil
}

func (s *projectService) List(ctx context.Context) ([]models.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		s.logger.Error("failed to list projects", zap.Error(err))
		return nil, utils.NewInternalError("Failed to list projects")
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, id int64) (*models.ProjectDetail, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", id), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}
	questions, err := s.projects.Questions(ctx, id)
	if err != nil {
		s.logger.Error("failed to load questions", zap.Int64("project_id", id), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load questions")
	}
	return &models.ProjectDetail{Project: *project, Questions: questions}, nil
}

func (s *projectService) Status(ctx context.Context, id int64) (*StatusReport, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", id), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}
	reviewed, total, err := s.answers.CountReviewed(ctx, id)
	if err != nil {
		s.logger.Error("failed to count reviewed answers", zap.Int64("project_id", id), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load review progress")
	}
	return &StatusReport{
		ProjectID:       id,
		Status:          project.Status,
		AnswersReviewed: reviewed,
		AnswersTotal:    total,
	}, nil
}
