package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	"github.com/noah-isme/sma-sis-api/internal/repository"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type markRepo interface {
	Upsert(ctx context.Context, mark *models.Mark) error
	BulkUpsert(ctx context.Context, marks []models.Mark) error
	FindByPair(ctx context.Context, examSubjectID, studentID string) (*models.Mark, error)
	ListBySubject(ctx context.Context, examSubjectID string) ([]models.Mark, error)
}

type examSubjectReader interface {
	FindSubject(ctx context.Context, id string) (*models.ExamSubject, error)
}

type resultPublishChecker interface {
	FindByExamStudent(ctx context.Context, examID, studentID string) (*models.Result, error)
}

// RecordMarksRequest upserts one student's score for one exam subject.
type RecordMarksRequest struct {
	ExamSubjectID string   `json:"exam_subject_id" validate:"required"`
	StudentID     string   `json:"student_id" validate:"required"`
	MarksObtained *float64 `json:"marks_obtained"`
	IsAbsent      bool     `json:"is_absent"`
	Remarks       string   `json:"remarks"`
	EnteredBy     string   `json:"-"`
}

// BulkMarksItem is one entry of a bulk marks payload.
type BulkMarksItem struct {
	StudentID     string   `json:"student_id" validate:"required"`
	MarksObtained *float64 `json:"marks_obtained"`
	IsAbsent      bool     `json:"is_absent"`
	Remarks       string   `json:"remarks"`
}

// BulkMarksRequest records a whole roster's marks for one subject atomically.
type BulkMarksRequest struct {
	ExamSubjectID string          `json:"exam_subject_id" validate:"required"`
	Items         []BulkMarksItem `json:"items" validate:"required,dive"`
	EnteredBy     string          `json:"-"`
}

// MarkService handles marks entry and per-subject aggregation.
type MarkService struct {
	marks     markRepo
	subjects  examSubjectReader
	results   resultPublishChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markRepo, subjects examSubjectReader, results resultPublishChecker, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{marks: marks, subjects: subjects, results: results, validator: validate, logger: logger}
}

// Record upserts a mark for one (exam subject, student) pair. Repeated calls
// overwrite, supporting incremental entry. An absent entry discards any
// supplied marks; entered marks must sit within the subject's scale. Entry
// against a published result is rejected.
func (s *MarkService) Record(ctx context.Context, req RecordMarksRequest) (*models.Mark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	subject, err := s.subjects.FindSubject(ctx, req.ExamSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subject")
	}

	mark, err := s.buildMark(subject, req.StudentID, req.MarksObtained, req.IsAbsent, req.Remarks, req.EnteredBy)
	if err != nil {
		return nil, err
	}
	if err := s.guardUnpublished(ctx, subject.ExamID, req.StudentID); err != nil {
		return nil, err
	}
	if err := s.marks.Upsert(ctx, mark); err != nil {
		if errors.Is(err, repository.ErrResultPublished) {
			return nil, appErrors.Clone(appErrors.ErrPublished, "marks are locked by a published result")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mark")
	}
	return mark, nil
}

// BulkRecord writes a roster of marks for one subject in one transaction. Any
// invalid entry rejects the whole batch.
func (s *MarkService) BulkRecord(ctx context.Context, req BulkMarksRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk marks payload")
	}
	subject, err := s.subjects.FindSubject(ctx, req.ExamSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "exam subject not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subject")
	}

	marks := make([]models.Mark, 0, len(req.Items))
	for _, item := range req.Items {
		mark, err := s.buildMark(subject, item.StudentID, item.MarksObtained, item.IsAbsent, item.Remarks, req.EnteredBy)
		if err != nil {
			return 0, err
		}
		if err := s.guardUnpublished(ctx, subject.ExamID, item.StudentID); err != nil {
			return 0, err
		}
		marks = append(marks, *mark)
	}
	if err := s.marks.BulkUpsert(ctx, marks); err != nil {
		if errors.Is(err, repository.ErrResultPublished) {
			return 0, appErrors.Clone(appErrors.ErrPublished, "marks are locked by a published result")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save marks")
	}
	return len(marks), nil
}

// ListBySubject returns all entered marks for one exam subject.
func (s *MarkService) ListBySubject(ctx context.Context, examSubjectID string) ([]models.Mark, error) {
	marks, err := s.marks.ListBySubject(ctx, examSubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// Statistics aggregates one subject's entries: average/highest/lowest cover
// non-absent entered marks only; absentees count separately and never pass.
func (s *MarkService) Statistics(ctx context.Context, examSubjectID string) (*models.SubjectStatistics, error) {
	subject, err := s.subjects.FindSubject(ctx, examSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subject")
	}
	marks, err := s.marks.ListBySubject(ctx, examSubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}

	stats := &models.SubjectStatistics{ExamSubjectID: examSubjectID, Entered: len(marks)}
	var sum float64
	var scored int
	for _, mark := range marks {
		if mark.IsAbsent {
			stats.AbsentCount++
			continue
		}
		if mark.MarksObtained == nil {
			continue
		}
		value := *mark.MarksObtained
		sum += value
		scored++
		if stats.Highest == nil || value > *stats.Highest {
			v := value
			stats.Highest = &v
		}
		if stats.Lowest == nil || value < *stats.Lowest {
			v := value
			stats.Lowest = &v
		}
		if value >= subject.PassingMarks {
			stats.PassCount++
		} else {
			stats.FailCount++
		}
	}
	if scored > 0 {
		avg := models.Round2(sum / float64(scored))
		stats.Average = &avg
	}
	return stats, nil
}

func (s *MarkService) buildMark(subject *models.ExamSubject, studentID string, obtained *float64, absent bool, remarks, enteredBy string) (*models.Mark, error) {
	mark := &models.Mark{
		ExamSubjectID: subject.ID,
		StudentID:     studentID,
		IsAbsent:      absent,
		Remarks:       remarks,
		EnteredBy:     enteredBy,
	}
	if absent {
		// Absence wins; any supplied marks are discarded.
		return mark, nil
	}
	if obtained != nil {
		if *obtained < 0 || *obtained > subject.TotalMarks {
			return nil, appErrors.Clone(appErrors.ErrValidation, "marks out of range")
		}
		v := *obtained
		mark.MarksObtained = &v
	}
	return mark, nil
}

// guardUnpublished is a fast pre-check for a friendlier early rejection. The
// authoritative check runs inside the repository's upsert transaction.
func (s *MarkService) guardUnpublished(ctx context.Context, examID, studentID string) error {
	result, err := s.results.FindByExamStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect result")
	}
	if result.IsPublished {
		return appErrors.Clone(appErrors.ErrPublished, "marks are locked by a published result")
	}
	return nil
}
