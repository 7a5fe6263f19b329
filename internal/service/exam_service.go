package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type examRepo interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	AddSubject(ctx context.Context, subject *models.ExamSubject) error
	FindSubject(ctx context.Context, id string) (*models.ExamSubject, error)
	ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error)
}

// CreateExamRequest registers a new examination.
type CreateExamRequest struct {
	Name      string `json:"name" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Section   string `json:"section" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
}

// AddExamSubjectRequest attaches one subject slot to an exam.
type AddExamSubjectRequest struct {
	SubjectID    string  `json:"subject_id" validate:"required"`
	SubjectName  string  `json:"subject_name" validate:"required"`
	TotalMarks   float64 `json:"total_marks" validate:"required,gt=0"`
	PassingMarks float64 `json:"passing_marks" validate:"gte=0"`
	ExamDate     string  `json:"exam_date" validate:"required"`
}

// ExamService manages exam definitions and their subject slots.
type ExamService struct {
	exams     examRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(exams examRepo, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, validator: validate, logger: logger}
}

// Create registers a new exam.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	exam := &models.Exam{
		Name:      req.Name,
		ClassID:   req.ClassID,
		Section:   req.Section,
		SessionID: req.SessionID,
		StartDate: startDate,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	s.logger.Info("exam created", zap.String("exam_id", exam.ID), zap.String("class_id", exam.ClassID))
	return exam, nil
}

// Get loads one exam.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// AddSubject attaches a subject slot to an existing exam. Passing marks may
// not exceed the subject's total marks.
func (s *ExamService) AddSubject(ctx context.Context, examID string, req AddExamSubjectRequest) (*models.ExamSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam subject payload")
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks exceed total marks")
	}
	examDate, err := time.Parse("2006-01-02", req.ExamDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_date must be YYYY-MM-DD")
	}
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}
	subject := &models.ExamSubject{
		ExamID:       examID,
		SubjectID:    req.SubjectID,
		SubjectName:  req.SubjectName,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
		ExamDate:     examDate,
	}
	if err := s.exams.AddSubject(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add exam subject")
	}
	return subject, nil
}

// ListSubjects returns an exam's subject slots.
func (s *ExamService) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}
	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam subjects")
	}
	return subjects, nil
}
