package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type mockResultStore struct {
	results   map[string]*models.Result // keyed exam|student
	meritRows []models.MeritRow
}

func resultKey(examID, studentID string) string { return examID + "|" + studentID }

func (m *mockResultStore) UpsertDraft(ctx context.Context, result *models.Result) error {
	if m.results == nil {
		m.results = make(map[string]*models.Result)
	}
	key := resultKey(result.ExamID, result.StudentID)
	if existing, ok := m.results[key]; ok {
		result.MeritPosition = existing.MeritPosition
	}
	result.ComputedAt = time.Now().UTC()
	copied := *result
	m.results[key] = &copied
	return nil
}

func (m *mockResultStore) FindByExamStudent(ctx context.Context, examID, studentID string) (*models.Result, error) {
	if result, ok := m.results[resultKey(examID, studentID)]; ok {
		copied := *result
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultStore) ListByExam(ctx context.Context, examID string) ([]models.Result, error) {
	var out []models.Result
	for _, result := range m.results {
		if result.ExamID == examID {
			out = append(out, *result)
		}
	}
	return out, nil
}

func (m *mockResultStore) MeritList(ctx context.Context, examID string) ([]models.MeritRow, error) {
	return m.meritRows, nil
}

func (m *mockResultStore) PublishExam(ctx context.Context, examID string, publishedAt time.Time) (int64, error) {
	var published int64
	for _, result := range m.results {
		if result.ExamID == examID && !result.IsPublished {
			result.IsPublished = true
			at := publishedAt
			result.PublishedAt = &at
			published++
		}
	}
	return published, nil
}

func (m *mockResultStore) UpdateMeritPositions(ctx context.Context, examID string, positions map[string]int) error {
	for _, result := range m.results {
		if result.ExamID == examID {
			if position, ok := positions[result.StudentID]; ok {
				result.MeritPosition = position
			}
		}
	}
	return nil
}

type mockExamStore struct {
	exams    map[string]models.Exam
	subjects map[string][]models.ExamSubject
}

func (m *mockExamStore) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := m.exams[id]; ok {
		return &exam, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamStore) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	return m.subjects[examID], nil
}

type mockExamMarks struct {
	byStudent map[string]map[string]models.Mark // student -> subject -> mark
}

func (m *mockExamMarks) ListByExamStudent(ctx context.Context, examID, studentID string) (map[string]models.Mark, error) {
	marks := m.byStudent[studentID]
	if marks == nil {
		marks = map[string]models.Mark{}
	}
	return marks, nil
}

func (m *mockExamMarks) ListByExam(ctx context.Context, examID string) (map[string][]models.Mark, error) {
	out := make(map[string][]models.Mark, len(m.byStudent))
	for studentID, marks := range m.byStudent {
		for _, mark := range marks {
			out[studentID] = append(out[studentID], mark)
		}
	}
	return out, nil
}

type mockGradingStore struct {
	active *models.GradingSystem
}

func (m *mockGradingStore) FindActive(ctx context.Context) (*models.GradingSystem, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

func standardGrading() *mockGradingStore {
	return &mockGradingStore{active: &models.GradingSystem{
		ID:     "grading-1",
		Name:   "Standard",
		Active: true,
		Bands: []models.GradeBand{
			{Grade: "A", GradePoint: 4, MinPercentage: 80, MaxPercentage: 100},
			{Grade: "B", GradePoint: 3, MinPercentage: 60, MaxPercentage: 79.99},
			{Grade: "C", GradePoint: 2, MinPercentage: 40, MaxPercentage: 59.99},
			{Grade: "F", GradePoint: 0, MinPercentage: 0, MaxPercentage: 39.99},
		},
	}}
}

func twoSubjectExam() *mockExamStore {
	return &mockExamStore{
		exams: map[string]models.Exam{"exam-1": {ID: "exam-1", ClassID: "class-1", Section: "A"}},
		subjects: map[string][]models.ExamSubject{"exam-1": {
			{ID: "subject-1", ExamID: "exam-1", SubjectName: "Mathematics", TotalMarks: 100, PassingMarks: 40},
			{ID: "subject-2", ExamID: "exam-1", SubjectName: "Science", TotalMarks: 100, PassingMarks: 40},
		}},
	}
}

func examMark(subjectID, studentID string, obtained *float64, absent bool) models.Mark {
	return models.Mark{ExamSubjectID: subjectID, StudentID: studentID, MarksObtained: obtained, IsAbsent: absent}
}

func newResultService(results *mockResultStore, exams *mockExamStore, marks *mockExamMarks, grading *mockGradingStore) *ResultService {
	return NewResultService(results, exams, marks, grading, nil, nil, validator.New(), zap.NewNop())
}

func TestResultCompute(t *testing.T) {
	results := &mockResultStore{}
	marks := &mockExamMarks{byStudent: map[string]map[string]models.Mark{
		"student-1": {
			"subject-1": examMark("subject-1", "student-1", floatPtr(80), false),
			"subject-2": examMark("subject-2", "student-1", floatPtr(70), false),
		},
	}}
	svc := newResultService(results, twoSubjectExam(), marks, standardGrading())

	result, err := svc.Compute(context.Background(), "exam-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, result.TotalMarks)
	assert.Equal(t, 150.0, result.MarksObtained)
	assert.Equal(t, 75.0, result.Percentage)
	assert.Equal(t, "B", result.Grade)
	assert.Equal(t, 3.0, result.GradePoint)
	assert.True(t, result.IsPassed)
	assert.False(t, result.IsPublished)
	assert.Equal(t, 1, result.MeritPosition)
	assert.Len(t, result.Subjects, 2)
}

func TestResultComputeIncompleteNamesSubjects(t *testing.T) {
	results := &mockResultStore{}
	marks := &mockExamMarks{byStudent: map[string]map[string]models.Mark{
		"student-1": {
			"subject-1": examMark("subject-1", "student-1", floatPtr(80), false),
		},
	}}
	svc := newResultService(results, twoSubjectExam(), marks, standardGrading())

	_, err := svc.Compute(context.Background(), "exam-1", "student-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIncomplete.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Science")
	assert.Empty(t, results.results)
}

// An absent subject contributes zero obtained marks while its full marks stay
// in the denominator.
func TestResultComputeAbsentKeepsDenominator(t *testing.T) {
	results := &mockResultStore{}
	marks := &mockExamMarks{byStudent: map[string]map[string]models.Mark{
		"student-1": {
			"subject-1": examMark("subject-1", "student-1", floatPtr(80), false),
			"subject-2": examMark("subject-2", "student-1", nil, true),
		},
	}}
	svc := newResultService(results, twoSubjectExam(), marks, standardGrading())

	result, err := svc.Compute(context.Background(), "exam-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, result.TotalMarks)
	assert.Equal(t, 80.0, result.MarksObtained)
	assert.Equal(t, 40.0, result.Percentage)
	assert.Equal(t, "C", result.Grade)
	assert.False(t, result.IsPassed)
}

func TestResultComputeRejectsPublished(t *testing.T) {
	results := &mockResultStore{results: map[string]*models.Result{
		"exam-1|student-1": {ExamID: "exam-1", StudentID: "student-1", IsPublished: true},
	}}
	marks := &mockExamMarks{byStudent: map[string]map[string]models.Mark{
		"student-1": {
			"subject-1": examMark("subject-1", "student-1", floatPtr(80), false),
			"subject-2": examMark("subject-2", "student-1", floatPtr(70), false),
		},
	}}
	svc := newResultService(results, twoSubjectExam(), marks, standardGrading())

	_, err := svc.Compute(context.Background(), "exam-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
}

func TestResultComputeClassSkipsIncompleteAndRanks(t *testing.T) {
	results := &mockResultStore{}
	marks := &mockExamMarks{byStudent: map[string]map[string]models.Mark{
		"student-1": {
			"subject-1": examMark("subject-1", "student-1", floatPtr(50), false),
			"subject-2": examMark("subject-2", "student-1", floatPtr(40), false),
		},
		"student-2": {
			"subject-1": examMark("subject-1", "student-2", floatPtr(45), false),
			"subject-2": examMark("subject-2", "student-2", floatPtr(45), false),
		},
		"student-3": {
			"subject-1": examMark("subject-1", "student-3", floatPtr(40), false),
			"subject-2": examMark("subject-2", "student-3", floatPtr(40), false),
		},
		"student-4": {
			"subject-1": examMark("subject-1", "student-4", floatPtr(99), false),
		},
	}}
	svc := newResultService(results, twoSubjectExam(), marks, standardGrading())

	summary, err := svc.ComputeClass(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Computed)
	assert.Equal(t, []string{"student-4"}, summary.Incomplete)

	// Equal totals share a rank; the next distinct total takes its ordinal
	// position: 90, 90, 80 ranks as 1, 1, 3.
	assert.Equal(t, 1, results.results["exam-1|student-1"].MeritPosition)
	assert.Equal(t, 1, results.results["exam-1|student-2"].MeritPosition)
	assert.Equal(t, 3, results.results["exam-1|student-3"].MeritPosition)
}

func TestResultPublish(t *testing.T) {
	results := &mockResultStore{results: map[string]*models.Result{
		"exam-1|student-1": {ExamID: "exam-1", StudentID: "student-1"},
		"exam-1|student-2": {ExamID: "exam-1", StudentID: "student-2"},
	}}
	svc := newResultService(results, twoSubjectExam(), &mockExamMarks{}, standardGrading())

	published, err := svc.Publish(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), published)
	assert.True(t, results.results["exam-1|student-1"].IsPublished)

	// A second publish finds no drafts and conflicts.
	_, err = svc.Publish(context.Background(), "exam-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestResultComputeRequiresActiveGrading(t *testing.T) {
	marks := &mockExamMarks{}
	svc := newResultService(&mockResultStore{}, twoSubjectExam(), marks, &mockGradingStore{})

	_, err := svc.Compute(context.Background(), "exam-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAssignMeritPositions(t *testing.T) {
	positions := assignMeritPositions([]studentTotal{
		{StudentID: "a", Obtained: 90},
		{StudentID: "b", Obtained: 80},
		{StudentID: "c", Obtained: 90},
		{StudentID: "d", Obtained: 70},
	})
	assert.Equal(t, 1, positions["a"])
	assert.Equal(t, 1, positions["c"])
	assert.Equal(t, 3, positions["b"])
	assert.Equal(t, 4, positions["d"])
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestMeritListReportsCacheHit(t *testing.T) {
	results := &mockResultStore{meritRows: []models.MeritRow{
		{StudentID: "student-1", StudentName: "Asha", MarksObtained: 180, Percentage: 90, Grade: "A+", MeritPosition: 1},
	}}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewResultService(results, twoSubjectExam(), &mockExamMarks{}, &mockGradingStore{}, nil, cache, validator.New(), zap.NewNop())

	rows, cached, err := svc.MeritList(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, rows, 1)

	// Second read is served from cache even after the store changes.
	results.meritRows = nil
	rows, cached, err = svc.MeritList(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.True(t, cached)
	require.Len(t, rows, 1)
	assert.Equal(t, "student-1", rows[0].StudentID)
}
