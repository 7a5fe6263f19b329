package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type mockExamRepo struct {
	exams    map[string]models.Exam
	subjects map[string][]models.ExamSubject
}

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	if m.exams == nil {
		m.exams = make(map[string]models.Exam)
	}
	if exam.ID == "" {
		exam.ID = "exam-generated"
	}
	m.exams[exam.ID] = *exam
	return nil
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := m.exams[id]; ok {
		return &exam, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) AddSubject(ctx context.Context, subject *models.ExamSubject) error {
	if m.subjects == nil {
		m.subjects = make(map[string][]models.ExamSubject)
	}
	if subject.ID == "" {
		subject.ID = "subject-generated"
	}
	m.subjects[subject.ExamID] = append(m.subjects[subject.ExamID], *subject)
	return nil
}

func (m *mockExamRepo) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	for _, subjects := range m.subjects {
		for _, subject := range subjects {
			if subject.ID == id {
				return &subject, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	return m.subjects[examID], nil
}

func newExamService(repo *mockExamRepo) *ExamService {
	return NewExamService(repo, validator.New(), zap.NewNop())
}

func TestExamCreate(t *testing.T) {
	repo := &mockExamRepo{}
	svc := newExamService(repo)

	exam, err := svc.Create(context.Background(), CreateExamRequest{
		Name:      "Midterm",
		ClassID:   "class-1",
		Section:   "A",
		SessionID: "2026",
		StartDate: "2026-09-15",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, exam.ID)
	assert.Equal(t, 2026, exam.StartDate.Year())
}

func TestExamCreateBadDate(t *testing.T) {
	svc := newExamService(&mockExamRepo{})

	_, err := svc.Create(context.Background(), CreateExamRequest{
		Name:      "Midterm",
		ClassID:   "class-1",
		Section:   "A",
		SessionID: "2026",
		StartDate: "15-09-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamAddSubject(t *testing.T) {
	repo := &mockExamRepo{exams: map[string]models.Exam{"exam-1": {ID: "exam-1"}}}
	svc := newExamService(repo)

	subject, err := svc.AddSubject(context.Background(), "exam-1", AddExamSubjectRequest{
		SubjectID:    "math",
		SubjectName:  "Mathematics",
		TotalMarks:   100,
		PassingMarks: 40,
		ExamDate:     "2026-09-16",
	})
	require.NoError(t, err)
	assert.Equal(t, "exam-1", subject.ExamID)

	subjects, err := svc.ListSubjects(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
}

func TestExamAddSubjectPassingAboveTotal(t *testing.T) {
	repo := &mockExamRepo{exams: map[string]models.Exam{"exam-1": {ID: "exam-1"}}}
	svc := newExamService(repo)

	_, err := svc.AddSubject(context.Background(), "exam-1", AddExamSubjectRequest{
		SubjectID:    "math",
		SubjectName:  "Mathematics",
		TotalMarks:   50,
		PassingMarks: 60,
		ExamDate:     "2026-09-16",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamAddSubjectUnknownExam(t *testing.T) {
	svc := newExamService(&mockExamRepo{})

	_, err := svc.AddSubject(context.Background(), "missing", AddExamSubjectRequest{
		SubjectID:   "math",
		SubjectName: "Mathematics",
		TotalMarks:  100,
		ExamDate:    "2026-09-16",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
