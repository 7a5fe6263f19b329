package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type mockGradingSystems struct {
	systems map[string]*models.GradingSystem
	active  string
}

func (m *mockGradingSystems) Create(ctx context.Context, system *models.GradingSystem) error {
	if m.systems == nil {
		m.systems = make(map[string]*models.GradingSystem)
	}
	if system.ID == "" {
		system.ID = fmt.Sprintf("grading-%d", len(m.systems)+1)
	}
	copied := *system
	m.systems[system.ID] = &copied
	return nil
}

func (m *mockGradingSystems) FindByID(ctx context.Context, id string) (*models.GradingSystem, error) {
	if system, ok := m.systems[id]; ok {
		copied := *system
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradingSystems) FindActive(ctx context.Context) (*models.GradingSystem, error) {
	if m.active == "" {
		return nil, sql.ErrNoRows
	}
	return m.FindByID(ctx, m.active)
}

func (m *mockGradingSystems) List(ctx context.Context) ([]models.GradingSystem, error) {
	out := make([]models.GradingSystem, 0, len(m.systems))
	for _, system := range m.systems {
		out = append(out, *system)
	}
	return out, nil
}

func (m *mockGradingSystems) SetActive(ctx context.Context, id string) error {
	m.active = id
	for _, system := range m.systems {
		system.Active = system.ID == id
	}
	return nil
}

func standardBands() []GradeBandInput {
	return []GradeBandInput{
		{Grade: "A", GradePoint: 4, MinPercentage: 80, MaxPercentage: 100},
		{Grade: "B", GradePoint: 3, MinPercentage: 60, MaxPercentage: 79.99},
		{Grade: "C", GradePoint: 2, MinPercentage: 40, MaxPercentage: 59.99},
		{Grade: "F", GradePoint: 0, MinPercentage: 0, MaxPercentage: 39.99},
	}
}

func newGradingService(repo *mockGradingSystems) *GradingService {
	return NewGradingService(repo, validator.New(), zap.NewNop())
}

func TestGradingCreate(t *testing.T) {
	repo := &mockGradingSystems{}
	svc := newGradingService(repo)

	system, err := svc.Create(context.Background(), CreateGradingSystemRequest{
		Name:   "Standard",
		Active: true,
		Bands:  standardBands(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, system.ID)
	assert.Len(t, system.Bands, 4)
	assert.Equal(t, system.ID, repo.active)
}

func TestGradingCreateRejectsOverlap(t *testing.T) {
	svc := newGradingService(&mockGradingSystems{})

	_, err := svc.Create(context.Background(), CreateGradingSystemRequest{
		Name: "Overlapping",
		Bands: []GradeBandInput{
			{Grade: "A", GradePoint: 4, MinPercentage: 50, MaxPercentage: 100},
			{Grade: "B", GradePoint: 3, MinPercentage: 0, MaxPercentage: 60},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradingCreateRejectsGap(t *testing.T) {
	svc := newGradingService(&mockGradingSystems{})

	_, err := svc.Create(context.Background(), CreateGradingSystemRequest{
		Name: "Gapped",
		Bands: []GradeBandInput{
			{Grade: "A", GradePoint: 4, MinPercentage: 70, MaxPercentage: 100},
			{Grade: "F", GradePoint: 0, MinPercentage: 0, MaxPercentage: 50},
		},
	})
	require.Error(t, err)
}

func TestGradingCreateMustCoverFullRange(t *testing.T) {
	svc := newGradingService(&mockGradingSystems{})

	_, err := svc.Create(context.Background(), CreateGradingSystemRequest{
		Name: "StartsLate",
		Bands: []GradeBandInput{
			{Grade: "A", GradePoint: 4, MinPercentage: 10, MaxPercentage: 100},
		},
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateGradingSystemRequest{
		Name: "EndsEarly",
		Bands: []GradeBandInput{
			{Grade: "F", GradePoint: 0, MinPercentage: 0, MaxPercentage: 90},
		},
	})
	require.Error(t, err)
}

func TestGradingActivateSwitchesSystems(t *testing.T) {
	repo := &mockGradingSystems{}
	svc := newGradingService(repo)

	first, err := svc.Create(context.Background(), CreateGradingSystemRequest{Name: "First", Active: true, Bands: standardBands()})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateGradingSystemRequest{Name: "Second", Bands: standardBands()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, repo.active)

	require.NoError(t, svc.Activate(context.Background(), second.ID))
	assert.Equal(t, second.ID, repo.active)

	err = svc.Activate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
