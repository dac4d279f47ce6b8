package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer, citations []models.Citation) error
	GetByID(ctx context.Context, id int64) (*models.Answer, error)
	GetByQuestion(ctx context.Context, questionID int64) (*models.Answer, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Answer, error)
	DeleteByQuestion(ctx context.Context, questionID int64) error
	Update(ctx context.Context, answer *models.Answer) error
	CountReviewed(ctx context.Context, projectID int64) (int, int, error)
}

type answerRepository struct {
	db *sqlx.DB
}

func NewAnswerRepository(db *sqlx.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer, citations []models.Citation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	answer.CreatedAt = now
	answer.UpdatedAt = now
	res, err := tx.ExecContext(ctx,
		`INSERT INTO answers (question_id, is_answerable, confidence_score, status,
		                      ai_answer_text, manual_answer_text, human_answer_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		answer.QuestionID, answer.IsAnswerable, answer.ConfidenceScore, answer.Status,
		answer.AIAnswerText, answer.ManualAnswerText, answer.HumanAnswerText,
		answer.CreatedAt, answer.UpdatedAt,
	)
	if err != nil {
		return err
	}
	answer.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range citations {
		citations[i].AnswerID = answer.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO citations (answer_id, chunk_id, document_id, snippet, bounding_box_ref, order_index)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			answer.ID, citations[i].ChunkID, citations[i].DocumentID,
			citations[i].Snippet, citations[i].BoundingBoxRef, citations[i].OrderIndex,
		)
		if err != nil {
			return err
		}
		citations[i].ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	answer.Citations = citations

	return tx.Commit()
}

const answerColumns = `id, question_id, is_answerable, confidence_score, status,
	ai_answer_text, manual_answer_text, human_answer_text, created_at, updated_at`

func (r *answerRepository) GetByID(ctx context.Context, id int64) (*models.Answer, error) {
	var a models.Answer
	err := r.db.GetContext(ctx, &a, `SELECT `+answerColumns+` FROM answers WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCitations(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *answerRepository) GetByQuestion(ctx context.Context, questionID int64) (*models.Answer, error) {
	var a models.Answer
	err := r.db.GetContext(ctx, &a, `SELECT `+answerColumns+` FROM answers WHERE question_id = ?`, questionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCitations(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *answerRepository) ListByProject(ctx context.Context, projectID int64) ([]models.Answer, error) {
	answers := []models.Answer{}
	err := r.db.SelectContext(ctx, &answers,
		`SELECT a.id, a.question_id, a.is_answerable, a.confidence_score, a.status,
		        a.ai_answer_text, a.manual_answer_text, a.human_answer_text, a.created_at, a.updated_at
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE q.project_id = ?
		 ORDER BY q.order_index`, projectID)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		if err := r.attachCitations(ctx, &answers[i]); err != nil {
			return nil, err
		}
	}
	return answers, nil
}

func (r *answerRepository) DeleteByQuestion(ctx context.Context, questionID int64) error {
	// citations cascade
	_, err := r.db.ExecContext(ctx, `DELETE FROM answers WHERE question_id = ?`, questionID)
	return err
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	answer.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE answers SET status = ?, manual_answer_text = ?, human_answer_text = ?, updated_at = ?
		 WHERE id = ?`,
		answer.Status, answer.ManualAnswerText, answer.HumanAnswerText, answer.UpdatedAt, answer.ID)
	return err
}

// CountReviewed returns (reviewed, total) answers for a project, where
// reviewed means neither PENDING nor MISSING_DATA.
func (r *answerRepository) CountReviewed(ctx context.Context, projectID int64) (int, int, error) {
	var reviewed, total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM answers a JOIN questions q ON q.id = a.question_id WHERE q.project_id = ?`,
		projectID)
	if err != nil {
		return 0, 0, err
	}
	err = r.db.GetContext(ctx, &reviewed,
		`SELECT COUNT(*) FROM answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.project_id = ? AND a.status NOT IN (?, ?)`,
		projectID, models.AnswerPending, models.AnswerMissingData)
	if err != nil {
		return 0, 0, err
	}
	return reviewed, total, nil
}

func (r *answerRepository) attachCitations(ctx context.Context, a *models.Answer) error {
	citations := []models.Citation{}
	err := r.db.SelectContext(ctx, &citations,
		`SELECT id, answer_id, chunk_id, document_id, snippet, bounding_box_ref, order_index
		 FROM citations WHERE answer_id = ? ORDER BY order_index`, a.ID)
	if err != nil {
		return err
	}
	a.Citations = citations
	return nil
}
