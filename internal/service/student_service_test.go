package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

type mockStudentRepo struct {
	students    map[string]models.Student
	admissions  map[string]string
	deactivated []string
	lastFilter  models.StudentFilter
	listTotal   int
	err         error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByAdmissionNo(ctx context.Context, admissionNo string, excludeID string) (bool, error) {
	if id, ok := m.admissions[admissionNo]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if s, ok := m.students[id]; ok {
		s.Active = false
		m.students[id] = s
	}
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{admissions: make(map[string]string)}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		AdmissionNo: "ADM-1234",
		FullName:    "John Doe",
		Gender:      "M",
		BirthDate:   time.Now(),
		ClassID:     "class-1",
		Section:     "A",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.True(t, student.Active)
	assert.Equal(t, 1, len(repo.students))
}

func TestStudentServiceCreateDuplicateAdmissionNo(t *testing.T) {
	repo := &mockStudentRepo{admissions: map[string]string{"ADM-123": "another"}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		AdmissionNo: "ADM-123",
		FullName:    "A",
		Gender:      "M",
		BirthDate:   time.Now(),
		ClassID:     "class-1",
		Section:     "A",
	})
	require.Error(t, err)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{
		students:   map[string]models.Student{"id1": {ID: "id1", AdmissionNo: "ADM-111", FullName: "Old", Gender: "M", ClassID: "class-1", Section: "A", Active: true}},
		admissions: make(map[string]string),
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "id1", UpdateStudentRequest{
		AdmissionNo: "ADM-222",
		FullName:    "New",
		Gender:      "F",
		BirthDate:   time.Now(),
		ClassID:     "class-2",
		Section:     "B",
		Active:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ADM-222", updated.AdmissionNo)
	assert.Equal(t, "New", updated.FullName)
	assert.Equal(t, "class-2", updated.ClassID)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"id1": {ID: "id1", AdmissionNo: "ADM-111", FullName: "Old", Gender: "M", Active: true}}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "id1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "id1")
}
