package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// MarkRepository handles per-subject mark persistence.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

const markColumns = `id, exam_subject_id, student_id, marks_obtained, is_absent, remarks, entered_by, created_at, updated_at`

const upsertMarkQuery = `INSERT INTO marks (id, exam_subject_id, student_id, marks_obtained, is_absent, remarks, entered_by, created_at, updated_at)
        VALUES (:id, :exam_subject_id, :student_id, :marks_obtained, :is_absent, :remarks, :entered_by, :created_at, :updated_at)
        ON CONFLICT (exam_subject_id, student_id)
        DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, is_absent = EXCLUDED.is_absent,
        remarks = EXCLUDED.remarks, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at`

// Locks the student's result row for the subject's exam. A draft row held
// under the lock keeps a concurrent publish waiting until the mark commits.
const lockResultQuery = `SELECT r.is_published FROM results r
        JOIN exam_subjects es ON es.exam_id = r.exam_id
        WHERE es.id = $1 AND r.student_id = $2
        FOR UPDATE OF r`

// guardUnpublished returns ErrResultPublished when the student already has a
// published result for the exam owning the subject. No result row means no
// lock is needed: publishing only flips existing drafts.
func guardUnpublished(ctx context.Context, tx *sqlx.Tx, examSubjectID, studentID string) error {
	var published bool
	err := tx.GetContext(ctx, &published, lockResultQuery, examSubjectID, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock result: %w", err)
	}
	if published {
		return ErrResultPublished
	}
	return nil
}

// Upsert inserts or overwrites the mark for one (exam subject, student) pair.
// Repeated calls for the same pair support incremental entry. The write and
// the published-result check share one transaction so a publish cannot slip
// in between them.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := guardUnpublished(ctx, tx, mark.ExamSubjectID, mark.StudentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if _, err := tx.NamedExecContext(ctx, upsertMarkQuery, mark); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("upsert mark: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark: %w", err)
	}
	return nil
}

// BulkUpsert writes a batch of marks in one transaction, rejecting the whole
// batch when any student already has a published result.
func (r *MarkRepository) BulkUpsert(ctx context.Context, marks []models.Mark) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range marks {
		if marks[i].ID == "" {
			marks[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if marks[i].CreatedAt.IsZero() {
			marks[i].CreatedAt = now
		}
		marks[i].UpdatedAt = now
		if err := guardUnpublished(ctx, tx, marks[i].ExamSubjectID, marks[i].StudentID); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertMarkQuery, marks[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert mark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit marks: %w", err)
	}
	return nil
}

// FindByPair loads the mark for one (exam subject, student) pair.
func (r *MarkRepository) FindByPair(ctx context.Context, examSubjectID, studentID string) (*models.Mark, error) {
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE exam_subject_id = $1 AND student_id = $2`, markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, examSubjectID, studentID); err != nil {
		return nil, err
	}
	return &mark, nil
}

// ListBySubject returns all marks entered for one exam subject.
func (r *MarkRepository) ListBySubject(ctx context.Context, examSubjectID string) ([]models.Mark, error) {
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE exam_subject_id = $1 ORDER BY created_at ASC`, markColumns)
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, examSubjectID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// ListByExamStudent returns marks for one student across all subjects of an
// exam, keyed by exam subject.
func (r *MarkRepository) ListByExamStudent(ctx context.Context, examID, studentID string) (map[string]models.Mark, error) {
	const query = `SELECT m.id, m.exam_subject_id, m.student_id, m.marks_obtained, m.is_absent, m.remarks, m.entered_by, m.created_at, m.updated_at
        FROM marks m
        JOIN exam_subjects es ON es.id = m.exam_subject_id
        WHERE es.exam_id = $1 AND m.student_id = $2`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("list exam marks: %w", err)
	}
	result := make(map[string]models.Mark, len(marks))
	for _, m := range marks {
		result[m.ExamSubjectID] = m
	}
	return result, nil
}

// ListByExam returns all marks of an exam grouped by student.
func (r *MarkRepository) ListByExam(ctx context.Context, examID string) (map[string][]models.Mark, error) {
	const query = `SELECT m.id, m.exam_subject_id, m.student_id, m.marks_obtained, m.is_absent, m.remarks, m.entered_by, m.created_at, m.updated_at
        FROM marks m
        JOIN exam_subjects es ON es.id = m.exam_subject_id
        WHERE es.exam_id = $1`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, examID); err != nil {
		return nil, fmt.Errorf("list exam marks: %w", err)
	}
	grouped := make(map[string][]models.Mark)
	for _, m := range marks {
		grouped[m.StudentID] = append(grouped[m.StudentID], m)
	}
	return grouped, nil
}
