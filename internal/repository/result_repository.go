package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// ResultRepository persists computed exam results and their subject rows.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, exam_id, student_id, class_id, section, total_marks, marks_obtained, percentage,
        grade, grade_point, merit_position, is_passed, is_published, published_at, computed_at`

// UpsertDraft writes a draft result and replaces its subject rows in one
// transaction. The conflict guard refuses to touch a published row.
func (r *ResultRepository) UpsertDraft(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.ComputedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}

	const upsert = `INSERT INTO results (id, exam_id, student_id, class_id, section, total_marks, marks_obtained,
        percentage, grade, grade_point, merit_position, is_passed, is_published, published_at, computed_at)
        VALUES (:id, :exam_id, :student_id, :class_id, :section, :total_marks, :marks_obtained,
        :percentage, :grade, :grade_point, :merit_position, :is_passed, false, NULL, :computed_at)
        ON CONFLICT (exam_id, student_id)
        DO UPDATE SET total_marks = EXCLUDED.total_marks, marks_obtained = EXCLUDED.marks_obtained,
        percentage = EXCLUDED.percentage, grade = EXCLUDED.grade, grade_point = EXCLUDED.grade_point,
        merit_position = EXCLUDED.merit_position, is_passed = EXCLUDED.is_passed, computed_at = EXCLUDED.computed_at
        WHERE results.is_published = false`
	res, err := tx.NamedExecContext(ctx, upsert, result)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("upsert result: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return ErrResultPublished
	}

	// Resolve the persisted row id so subject rows attach to the right parent
	// when the upsert hit an existing draft.
	var resultID string
	if err := tx.GetContext(ctx, &resultID, `SELECT id FROM results WHERE exam_id = $1 AND student_id = $2`, result.ExamID, result.StudentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("resolve result id: %w", err)
	}
	result.ID = resultID

	if _, err := tx.ExecContext(ctx, `DELETE FROM result_subjects WHERE result_id = $1`, resultID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear result subjects: %w", err)
	}
	for _, subject := range result.Subjects {
		const insert = `INSERT INTO result_subjects (id, result_id, exam_subject_id, subject_name, total_marks,
            passing_marks, marks_obtained, is_absent, is_passed)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), resultID, subject.ExamSubjectID, subject.SubjectName,
			subject.TotalMarks, subject.PassingMarks, subject.MarksObtained, subject.IsAbsent, subject.IsPassed); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert result subject: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result tx: %w", err)
	}
	return nil
}

// ErrResultPublished signals a write against a published result row.
var ErrResultPublished = fmt.Errorf("result already published")

// FindByExamStudent loads one result with its subject rows.
func (r *ResultRepository) FindByExamStudent(ctx context.Context, examID, studentID string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE exam_id = $1 AND student_id = $2`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, examID, studentID); err != nil {
		return nil, err
	}
	const subjectQuery = `SELECT exam_subject_id, subject_name, total_marks, passing_marks, marks_obtained, is_absent, is_passed
        FROM result_subjects WHERE result_id = $1 ORDER BY subject_name ASC`
	if err := r.db.SelectContext(ctx, &result.Subjects, subjectQuery, result.ID); err != nil {
		return nil, fmt.Errorf("load result subjects: %w", err)
	}
	return &result, nil
}

// ListByExam returns all results of one exam.
func (r *ResultRepository) ListByExam(ctx context.Context, examID string) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE exam_id = $1 ORDER BY merit_position ASC, marks_obtained DESC`, resultColumns)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, examID); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// MeritList returns the ranked merit rows of one exam.
func (r *ResultRepository) MeritList(ctx context.Context, examID string) ([]models.MeritRow, error) {
	const query = `SELECT res.student_id, s.full_name AS student_name, res.marks_obtained, res.percentage, res.grade, res.merit_position
        FROM results res
        JOIN students s ON s.id = res.student_id
        WHERE res.exam_id = $1
        ORDER BY res.merit_position ASC, s.full_name ASC`
	var rows []models.MeritRow
	if err := r.db.SelectContext(ctx, &rows, query, examID); err != nil {
		return nil, fmt.Errorf("merit list: %w", err)
	}
	return rows, nil
}

// PublishExam flips every draft of the exam to published. Returns the number
// of rows published; zero means everything was already published or absent.
func (r *ResultRepository) PublishExam(ctx context.Context, examID string, publishedAt time.Time) (int64, error) {
	const query = `UPDATE results SET is_published = true, published_at = $2
        WHERE exam_id = $1 AND is_published = false`
	res, err := r.db.ExecContext(ctx, query, examID, publishedAt)
	if err != nil {
		return 0, fmt.Errorf("publish results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("publish rows affected: %w", err)
	}
	return affected, nil
}

// UpdateMeritPositions rewrites merit positions for draft results of an exam.
func (r *ResultRepository) UpdateMeritPositions(ctx context.Context, examID string, positions map[string]int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merit tx: %w", err)
	}
	for studentID, position := range positions {
		const query = `UPDATE results SET merit_position = $3
            WHERE exam_id = $1 AND student_id = $2 AND is_published = false`
		if _, err := tx.ExecContext(ctx, query, examID, studentID, position); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("update merit position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merit tx: %w", err)
	}
	return nil
}
