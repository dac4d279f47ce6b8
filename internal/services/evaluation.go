package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/retrieval"
	"questionnaire-agent/internal/utils"
)

// EvaluationReport is the API view of one run, or the "no report yet"
// sentinel when the project has never been evaluated.
type EvaluationReport struct {
	ProjectID      int64                     `json:"project_id"`
	RunID          *int64                    `json:"run_id"`
	CreatedAt      *string                   `json:"created_at,omitempty"`
	AggregateScore *float64                  `json:"aggregate_score"`
	Message        string                    `json:"message,omitempty"`
	Results        []models.EvaluationResult `json:"results"`
}

type EvaluationService interface {
	Run(ctx context.Context, projectID int64) (*EvaluationReport, error)
	Report(ctx context.Context, projectID int64, runID *int64) (*EvaluationReport, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	answers     repository.AnswerRepository
	projects    repository.ProjectRepository
	embedder    retrieval.Embedder
	logger      *zap.Logger
}

func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	answers repository.AnswerRepository,
	projects repository.ProjectRepository,
	embedder retrieval.Embedder,
	logger *zap.Logger,
) EvaluationService {
	return &evaluationService{
		evaluations: evaluations,
		answers:     answers,
		projects:    projects,
		embedder:    embedder,
		logger:      logger,
	}
}

// Run scores every question in the project against its captured ground
// truth and records an immutable run. Questions missing either the answer or
// the ground truth are included with a null score. The aggregate is the mean
// of the non-null scores, null when there are none.
func (s *evaluationService) Run(ctx context.Context, projectID int64) (*EvaluationReport, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}

	run, err := s.evaluations.CreateRun(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to create evaluation run", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to create evaluation run")
	}

	questions, err := s.projects.Questions(ctx, projectID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load questions")
	}

	var scoreSum float64
	var scored int
	for _, q := range questions {
		result, err := s.scoreQuestion(ctx, run.ID, &q)
		if err != nil {
			s.logger.Error("failed to score question",
				zap.Int64("question_id", q.ID), zap.Error(err))
			return nil, utils.NewInternalError("Failed to score question")
		}
		if result.SimilarityScore != nil {
			scoreSum += *result.SimilarityScore
			scored++
		}
	}

	if scored > 0 {
		aggregate := round4(scoreSum / float64(scored))
		run.AggregateScore = &aggregate
	}
	if err := s.evaluations.SetAggregateScore(ctx, run.ID, run.AggregateScore); err != nil {
		s.logger.Error("failed to store aggregate score", zap.Int64("run_id", run.ID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to store aggregate score")
	}

	s.logger.Info("evaluation run complete",
		zap.Int64("project_id", projectID),
		zap.Int64("run_id", run.ID),
		zap.Int("questions", len(questions)),
		zap.Int("scored", scored))
	return s.reportForRun(ctx, run)
}

func (s *evaluationService) scoreQuestion(ctx context.Context, runID int64, q *models.Question) (*models.EvaluationResult, error) {
	answer, err := s.answers.GetByQuestion(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	result := &models.EvaluationResult{RunID: runID, QuestionID: q.ID}
	if answer != nil {
		// the effective answer: manual override when present, else AI text
		result.AIAnswer = answer.DisplayText()
		result.HumanAnswer = answer.HumanAnswerText
	}

	ai := deref(result.AIAnswer)
	human := deref(result.HumanAnswer)
	if strings.TrimSpace(ai) != "" && strings.TrimSpace(human) != "" {
		score, details := s.similarity(ctx, ai, human)
		rounded := round4(score)
		result.SimilarityScore = &rounded
		result.Details = &details
	}

	if err := s.evaluations.AddResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// similarity blends semantic and keyword signals equally. When embedding
// fails the score degrades to keyword overlap alone rather than failing the
// run.
func (s *evaluationService) similarity(ctx context.Context, ai, human string) (float64, string) {
	kw := keywordOverlap(ai, human)

	vecs, err := s.embedder.Embed(ctx, []string{ai, human})
	if err != nil || len(vecs) != 2 {
		if err != nil {
			s.logger.Warn("embedding unavailable, scoring on keywords only", zap.Error(err))
		}
		return kw, fmt.Sprintf("keyword=%.3f", kw)
	}

	// cosine is in [-1, 1]; map to [0, 1]
	sem := (retrieval.Cosine(vecs[0], vecs[1]) + 1) / 2
	sem = math.Max(0, math.Min(1, sem))
	return 0.5*sem + 0.5*kw, fmt.Sprintf("semantic=%.3f, keyword=%.3f", sem, kw)
}

// Report returns the requested run, the latest run when runID is nil, or
// the sentinel when the project has no runs yet.
func (s *evaluationService) Report(ctx context.Context, projectID int64, runID *int64) (*EvaluationReport, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load project")
	}
	if project == nil {
		return nil, utils.NewNotFoundError("Project not found")
	}

	var run *models.EvaluationRun
	if runID == nil {
		run, err = s.evaluations.LatestRun(ctx, projectID)
	} else {
		run, err = s.evaluations.GetRun(ctx, projectID, *runID)
	}
	if err != nil {
		s.logger.Error("failed to load evaluation run", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load evaluation run")
	}
	if run == nil {
		return &EvaluationReport{
			ProjectID: projectID,
			RunID:     runID,
			Message:   "No evaluation run found",
			Results:   []models.EvaluationResult{},
		}, nil
	}
	return s.reportForRun(ctx, run)
}

func (s *evaluationService) reportForRun(ctx context.Context, run *models.EvaluationRun) (*EvaluationReport, error) {
	results, err := s.evaluations.Results(ctx, run.ID)
	if err != nil {
		s.logger.Error("failed to load evaluation results", zap.Int64("run_id", run.ID), zap.Error(err))
		return nil, utils.NewInternalError("Failed to load evaluation results")
	}
	createdAt := run.CreatedAt.UTC().Format(time.RFC3339)
	return &EvaluationReport{
		ProjectID:      run.ProjectID,
		RunID:          &run.ID,
		CreatedAt:      &createdAt,
		AggregateScore: run.AggregateScore,
		Results:        results,
	}, nil
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// keywordOverlap is token-set overlap normalized by the larger set. Two
// empty texts count as identical.
func keywordOverlap(ai, human string) float64 {
	a := tokens(ai)
	b := tokens(human)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	return float64(shared) / math.Max(float64(len(a)), float64(len(b)))
}

func tokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	for _, tok := range strings.Fields(cleaned) {
		out[tok] = struct{}{}
	}
	return out
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
