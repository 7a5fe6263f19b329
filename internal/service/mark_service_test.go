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
	"github.com/noah-isme/sma-sis-api/internal/repository"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type mockMarkStore struct {
	marks   map[string]models.Mark // keyed subject|student
	saveErr error
}

func markKey(subjectID, studentID string) string { return subjectID + "|" + studentID }

func (m *mockMarkStore) Upsert(ctx context.Context, mark *models.Mark) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.marks == nil {
		m.marks = make(map[string]models.Mark)
	}
	m.marks[markKey(mark.ExamSubjectID, mark.StudentID)] = *mark
	return nil
}

func (m *mockMarkStore) BulkUpsert(ctx context.Context, marks []models.Mark) error {
	for i := range marks {
		if err := m.Upsert(ctx, &marks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockMarkStore) FindByPair(ctx context.Context, examSubjectID, studentID string) (*models.Mark, error) {
	if mark, ok := m.marks[markKey(examSubjectID, studentID)]; ok {
		return &mark, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMarkStore) ListBySubject(ctx context.Context, examSubjectID string) ([]models.Mark, error) {
	var out []models.Mark
	for _, mark := range m.marks {
		if mark.ExamSubjectID == examSubjectID {
			out = append(out, mark)
		}
	}
	return out, nil
}

type mockSubjectStore struct {
	subjects map[string]models.ExamSubject
}

func (m *mockSubjectStore) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	if subject, ok := m.subjects[id]; ok {
		return &subject, nil
	}
	return nil, sql.ErrNoRows
}

type mockPublishState struct {
	published map[string]bool // keyed exam|student
}

func (m *mockPublishState) FindByExamStudent(ctx context.Context, examID, studentID string) (*models.Result, error) {
	published, ok := m.published[examID+"|"+studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Result{ExamID: examID, StudentID: studentID, IsPublished: published}, nil
}

func mathSubject() *mockSubjectStore {
	return &mockSubjectStore{subjects: map[string]models.ExamSubject{
		"subject-1": {ID: "subject-1", ExamID: "exam-1", SubjectName: "Mathematics", TotalMarks: 100, PassingMarks: 40},
	}}
}

func newMarkService(marks *mockMarkStore, subjects *mockSubjectStore, results *mockPublishState) *MarkService {
	if results == nil {
		results = &mockPublishState{}
	}
	return NewMarkService(marks, subjects, results, validator.New(), zap.NewNop())
}

func TestMarkRecordAndOverwrite(t *testing.T) {
	store := &mockMarkStore{}
	svc := newMarkService(store, mathSubject(), nil)

	mark, err := svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(72),
		EnteredBy:     "teacher-1",
	})
	require.NoError(t, err)
	require.NotNil(t, mark.MarksObtained)
	assert.Equal(t, 72.0, *mark.MarksObtained)

	// A second entry overwrites the first.
	mark, err = svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(75),
		EnteredBy:     "teacher-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, *mark.MarksObtained)
	assert.Len(t, store.marks, 1)
}

func TestMarkRecordOutOfRange(t *testing.T) {
	svc := newMarkService(&mockMarkStore{}, mathSubject(), nil)

	_, err := svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(101),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(-1),
	})
	require.Error(t, err)
}

func TestMarkRecordAbsentDiscardsMarks(t *testing.T) {
	svc := newMarkService(&mockMarkStore{}, mathSubject(), nil)

	mark, err := svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(55),
		IsAbsent:      true,
	})
	require.NoError(t, err)
	assert.True(t, mark.IsAbsent)
	assert.Nil(t, mark.MarksObtained)
}

func TestMarkRecordLockedByPublishedResult(t *testing.T) {
	results := &mockPublishState{published: map[string]bool{"exam-1|student-1": true}}
	store := &mockMarkStore{}
	svc := newMarkService(store, mathSubject(), results)

	_, err := svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(80),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.marks)
}

func TestMarkBulkRecordRejectsWholeBatch(t *testing.T) {
	store := &mockMarkStore{}
	svc := newMarkService(store, mathSubject(), nil)

	_, err := svc.BulkRecord(context.Background(), BulkMarksRequest{
		ExamSubjectID: "subject-1",
		Items: []BulkMarksItem{
			{StudentID: "student-1", MarksObtained: floatPtr(60)},
			{StudentID: "student-2", MarksObtained: floatPtr(150)},
		},
	})
	require.Error(t, err)
	assert.Empty(t, store.marks)
}

func TestMarkBulkRecord(t *testing.T) {
	store := &mockMarkStore{}
	svc := newMarkService(store, mathSubject(), nil)

	count, err := svc.BulkRecord(context.Background(), BulkMarksRequest{
		ExamSubjectID: "subject-1",
		EnteredBy:     "teacher-1",
		Items: []BulkMarksItem{
			{StudentID: "student-1", MarksObtained: floatPtr(60)},
			{StudentID: "student-2", IsAbsent: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, store.marks, 2)
}

func TestMarkStatistics(t *testing.T) {
	store := &mockMarkStore{}
	svc := newMarkService(store, mathSubject(), nil)

	for _, entry := range []struct {
		student string
		marks   *float64
		absent  bool
	}{
		{"student-1", floatPtr(80), false},
		{"student-2", floatPtr(30), false},
		{"student-3", nil, true},
	} {
		_, err := svc.Record(context.Background(), RecordMarksRequest{
			ExamSubjectID: "subject-1",
			StudentID:     entry.student,
			MarksObtained: entry.marks,
			IsAbsent:      entry.absent,
		})
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(context.Background(), "subject-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entered)
	require.NotNil(t, stats.Average)
	assert.Equal(t, 55.0, *stats.Average)
	require.NotNil(t, stats.Highest)
	assert.Equal(t, 80.0, *stats.Highest)
	require.NotNil(t, stats.Lowest)
	assert.Equal(t, 30.0, *stats.Lowest)
	assert.Equal(t, 1, stats.PassCount)
	assert.Equal(t, 1, stats.FailCount)
	assert.Equal(t, 1, stats.AbsentCount)
}

func TestMarkRecordMapsPublishRaceFromStore(t *testing.T) {
	// The publish lands after the pre-check, surfacing from the store's
	// transactional guard instead.
	store := &mockMarkStore{saveErr: repository.ErrResultPublished}
	svc := newMarkService(store, mathSubject(), nil)

	_, err := svc.Record(context.Background(), RecordMarksRequest{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: floatPtr(50),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
}

func TestMarkBulkRecordMapsPublishRaceFromStore(t *testing.T) {
	store := &mockMarkStore{saveErr: repository.ErrResultPublished}
	svc := newMarkService(store, mathSubject(), nil)

	_, err := svc.BulkRecord(context.Background(), BulkMarksRequest{
		ExamSubjectID: "subject-1",
		Items: []BulkMarksItem{
			{StudentID: "student-1", MarksObtained: floatPtr(50)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPublished.Code, appErrors.FromError(err).Code)
}
