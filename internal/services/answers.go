package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"questionnaire-agent/internal/answerer"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/retrieval"
	"questionnaire-agent/internal/utils"
)

const noRelevantDocuments = "No relevant documents found."

type AnswerService interface {
	GenerateAllAsync(ctx context.Context, projectID int64) (*models.Job, error)
	GenerateSingle(ctx context.Context, questionID int64) (*models.Answer, error)
	Update(ctx context.Context, answerID int64, upd *models.AnswerUpdate) (*models.Answer, error)
	GetByQuestion(ctx context.Context, questionID int64) (*models.Answer, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Answer, error)
}

type answerService struct {
	answers  repository.AnswerRepository
	projects repository.ProjectRepository
	store    *retrieval.Store
	answerer answerer.Answerer
	ledger   *jobs.Ledger
	runner   *jobs.Runner
	topK     int
	logger   *zap.Logger
}

func NewAnswerService(
	answers repository.AnswerRepository,
	projects repository.ProjectRepository,
	store *retrieval.Store,
	llm answerer.Answerer,
	ledger *jobs.Ledger,
	runner *jobs.Runner,
	topK int,
	logger *zap.Logger,
) AnswerService {
	return &answerService{
		answers:  answers,
		projects: projects,
		store:    store,
		answerer: llm,
		ledger:   ledger,
		runner:   runner,
		topK:     topK,
		logger:   logger,
	}
}

// GenerateAllAsync records a generate_answers job that regenerates every
// answer in the project. At most one such job runs per project; a second
// submission while one is in flight returns the in-flight job unchanged.
func (s *answerService) GenerateAllAsync(ctx context.Context, projectID int64) (*models.Job, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}

	job, err := s.runner.RunGenerateAnswers(ctx, s.ledger, projectID, func(ctx context.Context) (string, string, error) {
		if err := s.generateAll(ctx, projectID); err != nil {
			// answers are in a mixed state; the project needs a re-run.
			// ctx may already be past its deadline, this write must still land
			if serr := s.projects.UpdateStatus(context.WithoutCancel(ctx), projectID, models.ProjectOutdated); serr != nil {
				s.logger.Error("failed to flag project after generation failure",
					zap.Int64("project_id", projectID), zap.Error(serr))
			}
			return "", "", err
		}
		return strconv.FormatInt(projectID, 10),
			fmt.Sprintf(`{"project_id":%d}`, projectID), nil
	})
	if err != nil {
		s.logger.Error("failed to record generation job", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to record generation job")
	}
	return job, nil
}

func (s *answerService) generateAll(ctx context.Context, projectID int64) error {
	if err := s.projects.UpdateStatus(ctx, projectID, models.ProjectGenerating); err != nil {
		return err
	}

	questions, err := s.projects.Questions(ctx, projectID)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.answers.DeleteByQuestion(ctx, q.ID); err != nil {
			return err
		}
		if _, err := s.generateOne(ctx, &q); err != nil {
			return fmt.Errorf("question %d: %w", q.ID, err)
		}
	}

	return s.projects.UpdateStatus(ctx, projectID, models.ProjectComplete)
}

// generateOne retrieves context for the question, asks the model, and stores
// the answer. No retrieval hits or an unanswerable verdict yield a
// MISSING_DATA answer instead of an error.
func (s *answerService) generateOne(ctx context.Context, q *models.Question) (*models.Answer, error) {
	hits, err := s.store.Search(ctx, q.QuestionText, s.topK)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		text := noRelevantDocuments
		zero := 0.0
		answer := &models.Answer{
			QuestionID:      q.ID,
			IsAnswerable:    false,
			ConfidenceScore: &zero,
			Status:          models.AnswerMissingData,
			AIAnswerText:    &text,
		}
		if err := s.answers.Create(ctx, answer, nil); err != nil {
			return nil, err
		}
		answer.AnswerText = answer.DisplayText()
		return answer, nil
	}

	result, err := s.answerer.Answer(ctx, q.QuestionText, hits)
	if err != nil {
		return nil, err
	}

	status := models.AnswerPending
	if !result.Answerable {
		status = models.AnswerMissingData
	}
	confidence := result.Confidence
	answer := &models.Answer{
		QuestionID:      q.ID,
		IsAnswerable:    result.Answerable,
		ConfidenceScore: &confidence,
		Status:          status,
		AIAnswerText:    &result.Answer,
	}

	citations := make([]models.Citation, 0, len(result.Citations))
	for i, c := range result.Citations {
		chunkID := c.ChunkID
		snippet := truncateSnippet(c.Snippet)
		citations = append(citations, models.Citation{
			ChunkID:    &chunkID,
			DocumentID: documentForChunk(hits, c.ChunkID),
			Snippet:    &snippet,
			OrderIndex: i,
		})
	}

	if err := s.answers.Create(ctx, answer, citations); err != nil {
		return nil, err
	}
	answer.AnswerText = answer.DisplayText()
	return answer, nil
}

// GenerateSingle regenerates one question's answer synchronously, replacing
// any existing answer.
func (s *answerService) GenerateSingle(ctx context.Context, questionID int64) (*models.Answer, error) {
	question, err := s.projects.GetQuestion(ctx, questionID)
	if err != nil {
		s.logger.Error("failed to load question", zap.Int64("question_id", questionID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load question")
	}
	if question == nil {
		return nil, utils.NewNotFoundError("Question not found")
	}

	if err := s.answers.DeleteByQuestion(ctx, questionID); err != nil {
		s.logger.Error("failed to delete old answer", zap.Int64("question_id", questionID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to replace answer")
	}

	answer, err := s.generateOne(ctx, question)
	if err != nil {
		s.logger.Error("failed to generate answer", zap.Int64("question_id", questionID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to generate answer")
	}
	return answer, nil
}

// Update applies a partial reviewer edit: any subset of status, manual
// override text and ground truth text. Omitted fields are untouched. The
// validation failures happen before any write, so a rejected update leaves
// the answer exactly as it was.
func (s *answerService) Update(ctx context.Context, answerID int64, upd *models.AnswerUpdate) (*models.Answer, error) {
	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		s.logger.Error("failed to load answer", zap.Int64("answer_id", answerID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load answer")
	}
	if answer == nil {
		return nil, utils.NewNotFoundError("Answer not found")
	}

	if upd.Status != nil {
		if !models.ReviewerStatus(*upd.Status) {
			return nil, utils.NewValidationError(fmt.Sprintf("Status %q cannot be set by a reviewer", *upd.Status))
		}
		if *upd.Status == models.AnswerManualUpdated {
			hasText := (upd.ManualAnswerText != nil && *upd.ManualAnswerText != "") ||
				(upd.ManualAnswerText == nil && answer.ManualAnswerText != nil && *answer.ManualAnswerText != "")
			if !hasText {
				return nil, utils.NewValidationError("MANUAL_UPDATED requires manual_answer_text")
			}
		}
		answer.Status = *upd.Status
	}
	if upd.ManualAnswerText != nil {
		answer.ManualAnswerText = upd.ManualAnswerText
	}
	if upd.HumanAnswerText != nil {
		answer.HumanAnswerText = upd.HumanAnswerText
	}

	if err := s.answers.Update(ctx, answer); err != nil {
		s.logger.Error("failed to update answer", zap.Int64("answer_id", answerID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to update answer")
	}
	answer.AnswerText = answer.DisplayText()
	return answer, nil
}

func (s *answerService) GetByQuestion(ctx context.Context, questionID int64) (*models.Answer, error) {
	answer, err := s.answers.GetByQuestion(ctx, questionID)
	if err != nil {
		s.logger.Error("failed to load answer", zap.Int64("question_id", questionID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load answer")
	}
	if answer != nil {
		answer.AnswerText = answer.DisplayText()
	}
	return answer, nil
}

func (s *answerService) ListByProject(ctx context.Context, projectID int64) ([]models.Answer, error) {
	answers, err := s.answers.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to list answers", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to list answers")
	}
	for i := range answers {
		answers[i].AnswerText = answers[i].DisplayText()
	}
	return answers, nil
}

func documentForChunk(hits []retrieval.ScoredChunk, chunkID string) *string {
	for _, h := range hits {
		if h.Chunk.ID == chunkID {
			docID := h.Chunk.DocumentID
			return &docID
		}
	}
	return nil
}

func truncateSnippet(s string) string {
	if len(s) > 2000 {
		return s[:2000]
	}
	return s
}
