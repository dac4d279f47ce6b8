package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project, questions []models.Question) error
	AddQuestions(ctx context.Context, projectID int64, questions []models.Question) error
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	UpdateStatus(ctx context.Context, id int64, status models.ProjectStatus) error
	UpdateFields(ctx context.Context, id int64, name, scope *string) error
	SetQuestionnaireDocument(ctx context.Context, id int64, documentID string) error
	MarkAllDocsOutdated(ctx context.Context) (int64, error)
	Questions(ctx context.Context, projectID int64) ([]models.Question, error)
	GetQuestion(ctx context.Context, questionID int64) (*models.Question, error)
}

type projectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create inserts the project and its questions in one transaction so a
// partially extracted project is never observable.
func (r *projectRepository) Create(ctx context.Context, project *models.Project, questions []models.Question) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (name, questionnaire_document_id, scope, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		project.Name, project.QuestionnaireDocumentID, project.Scope, project.Status,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return err
	}
	project.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range questions {
		questions[i].ProjectID = project.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (project_id, section_id, section_title, question_text, order_index)
			 VALUES (?, ?, ?, ?, ?)`,
			project.ID, questions[i].SectionID, questions[i].SectionTitle,
			questions[i].QuestionText, questions[i].OrderIndex,
		)
		if err != nil {
			return err
		}
		questions[i].ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddQuestions inserts extracted questions for an existing project in one
// transaction.
func (r *projectRepository) AddQuestions(ctx context.Context, projectID int64, questions []models.Question) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range questions {
		questions[i].ProjectID = projectID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (project_id, section_id, section_title, question_text, order_index)
			 VALUES (?, ?, ?, ?, ?)`,
			projectID, questions[i].SectionID, questions[i].SectionTitle,
			questions[i].QuestionText, questions[i].OrderIndex,
		)
		if err != nil {
			return err
		}
		questions[i].ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := r.db.GetContext(ctx, &p,
		`SELECT id, name, questionnaire_document_id, scope, status, created_at, updated_at
		 FROM projects WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	err := r.db.SelectContext(ctx, &projects,
		`SELECT id, name, questionnaire_document_id, scope, status, created_at, updated_at
		 FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepository) UpdateStatus(ctx context.Context, id int64, status models.ProjectStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	return err
}

func (r *projectRepository) UpdateFields(ctx context.Context, id int64, name, scope *string) error {
	if name == nil && scope == nil {
		return nil
	}
	query := `UPDATE projects SET updated_at = ?`
	args := []interface{}{time.Now().UTC()}
	if name != nil {
		query += `, name = ?`
		args = append(args, *name)
	}
	if scope != nil {
		query += `, scope = ?`
		args = append(args, *scope)
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *projectRepository) SetQuestionnaireDocument(ctx context.Context, id int64, documentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET questionnaire_document_id = ?, updated_at = ? WHERE id = ?`,
		documentID, time.Now().UTC(), id)
	return err
}

// MarkAllDocsOutdated flips every non-OUTDATED project answering against the
// whole corpus to OUTDATED. Called after a new corpus document is indexed.
func (r *projectRepository) MarkAllDocsOutdated(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE scope = ? AND status != ?`,
		models.ProjectOutdated, time.Now().UTC(), models.ScopeAllDocs, models.ProjectOutdated)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *projectRepository) Questions(ctx context.Context, projectID int64) ([]models.Question, error) {
	questions := []models.Question{}
	err := r.db.SelectContext(ctx, &questions,
		`SELECT id, project_id, section_id, section_title, question_text, order_index
		 FROM questions WHERE project_id = ? ORDER BY order_index`, projectID)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *projectRepository) GetQuestion(ctx context.Context, questionID int64) (*models.Question, error) {
	var q models.Question
	err := r.db.GetContext(ctx, &q,
		`SELECT id, project_id, section_id, section_title, question_text, order_index
		 FROM questions WHERE id = ?`, questionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
