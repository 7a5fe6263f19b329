package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// ExamRepository handles exams and their subject slots.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, name, class_id, section, session_id, start_date, created_at, updated_at)
        VALUES (:id, :name, :class_id, :section, :session_id, :start_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByID loads one exam.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, name, class_id, section, session_id, start_date, created_at, updated_at
        FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// AddSubject attaches a subject slot to an exam.
func (r *ExamRepository) AddSubject(ctx context.Context, subject *models.ExamSubject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_subjects (id, exam_id, subject_id, subject_name, total_marks, passing_marks, exam_date, created_at)
        VALUES (:id, :exam_id, :subject_id, :subject_name, :total_marks, :passing_marks, :exam_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("add exam subject: %w", err)
	}
	return nil
}

// FindSubject loads one exam subject slot.
func (r *ExamRepository) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	const query = `SELECT id, exam_id, subject_id, subject_name, total_marks, passing_marks, exam_date, created_at
        FROM exam_subjects WHERE id = $1`
	var subject models.ExamSubject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns every subject slot of an exam.
func (r *ExamRepository) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	const query = `SELECT id, exam_id, subject_id, subject_name, total_marks, passing_marks, exam_date, created_at
        FROM exam_subjects WHERE exam_id = $1 ORDER BY exam_date ASC, subject_name ASC`
	var subjects []models.ExamSubject
	if err := r.db.SelectContext(ctx, &subjects, query, examID); err != nil {
		return nil, fmt.Errorf("list exam subjects: %w", err)
	}
	return subjects, nil
}
