package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

type EvaluationRepository interface {
	CreateRun(ctx context.Context, projectID int64) (*models.EvaluationRun, error)
	SetAggregateScore(ctx context.Context, runID int64, score *float64) error
	AddResult(ctx context.Context, result *models.EvaluationResult) error
	LatestRun(ctx context.Context, projectID int64) (*models.EvaluationRun, error)
	GetRun(ctx context.Context, projectID, runID int64) (*models.EvaluationRun, error)
	Results(ctx context.Context, runID int64) ([]models.EvaluationResult, error)
}

type evaluationRepository struct {
	db *sqlx.DB
}

func NewEvaluationRepository(db *sqlx.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) CreateRun(ctx context.Context, projectID int64) (*models.EvaluationRun, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs (project_id, created_at) VALUES (?, ?)`, projectID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.EvaluationRun{ID: id, ProjectID: projectID, CreatedAt: now}, nil
}

func (r *evaluationRepository) SetAggregateScore(ctx context.Context, runID int64, score *float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE evaluation_runs SET aggregate_score = ? WHERE id = ?`, score, runID)
	return err
}

func (r *evaluationRepository) AddResult(ctx context.Context, result *models.EvaluationResult) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluation_results (run_id, question_id, ai_answer, human_answer, similarity_score, details)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID, result.QuestionID, result.AIAnswer, result.HumanAnswer,
		result.SimilarityScore, result.Details)
	if err != nil {
		return err
	}
	result.ID, err = res.LastInsertId()
	return err
}

func (r *evaluationRepository) LatestRun(ctx context.Context, projectID int64) (*models.EvaluationRun, error) {
	var run models.EvaluationRun
	err := r.db.GetContext(ctx, &run,
		`SELECT id, project_id, aggregate_score, created_at FROM evaluation_runs
		 WHERE project_id = ? ORDER BY id DESC LIMIT 1`, projectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *evaluationRepository) GetRun(ctx context.Context, projectID, runID int64) (*models.EvaluationRun, error) {
	var run models.EvaluationRun
	err := r.db.GetContext(ctx, &run,
		`SELECT id, project_id, aggregate_score, created_at FROM evaluation_runs
		 WHERE id = ? AND project_id = ?`, runID, projectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *evaluationRepository) Results(ctx context.Context, runID int64) ([]models.EvaluationResult, error) {
	results := []models.EvaluationResult{}
	err := r.db.SelectContext(ctx, &results,
		`SELECT id, run_id, question_id, ai_answer, human_answer, similarity_score, details
		 FROM evaluation_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	return results, nil
}
