package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type gradingRepo interface {
	Create(ctx context.Context, system *models.GradingSystem) error
	FindByID(ctx context.Context, id string) (*models.GradingSystem, error)
	FindActive(ctx context.Context) (*models.GradingSystem, error)
	List(ctx context.Context) ([]models.GradingSystem, error)
	SetActive(ctx context.Context, id string) error
}

// GradeBandInput is one band of a grading system payload.
type GradeBandInput struct {
	Grade         string  `json:"grade" validate:"required"`
	GradePoint    float64 `json:"grade_point" validate:"gte=0"`
	MinPercentage float64 `json:"min_percentage" validate:"gte=0,lte=100"`
	MaxPercentage float64 `json:"max_percentage" validate:"gte=0,lte=100"`
}

// CreateGradingSystemRequest defines a new grading table.
type CreateGradingSystemRequest struct {
	Name   string           `json:"name" validate:"required"`
	Active bool             `json:"active"`
	Bands  []GradeBandInput `json:"bands" validate:"required,min=1,dive"`
}

// GradingService manages grading tables and enforces their shape at write
// time: bands must be non-overlapping, contiguous and cover 0-100.
type GradingService struct {
	systems   gradingRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(systems gradingRepo, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{systems: systems, validator: validate, logger: logger}
}

// bandStep is the granularity at which adjacent bands must meet: a band
// ending at 39.99 is contiguous with one starting at 40.
const bandStep = 0.01

// Create validates and persists a grading system.
func (s *GradingService) Create(ctx context.Context, req CreateGradingSystemRequest) (*models.GradingSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading payload")
	}

	bands := make([]models.GradeBand, 0, len(req.Bands))
	for _, b := range req.Bands {
		bands = append(bands, models.GradeBand{
			Grade:         b.Grade,
			GradePoint:    b.GradePoint,
			MinPercentage: b.MinPercentage,
			MaxPercentage: b.MaxPercentage,
		})
	}
	if err := validateBands(bands); err != nil {
		return nil, err
	}

	system := &models.GradingSystem{Name: req.Name, Active: req.Active, Bands: bands}
	if err := s.systems.Create(ctx, system); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grading system")
	}
	if req.Active {
		if err := s.systems.SetActive(ctx, system.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate grading system")
		}
	}
	return system, nil
}

// Get loads one grading system with bands.
func (s *GradingService) Get(ctx context.Context, id string) (*models.GradingSystem, error) {
	system, err := s.systems.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grading system not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading system")
	}
	return system, nil
}

// List returns all grading systems.
func (s *GradingService) List(ctx context.Context) ([]models.GradingSystem, error) {
	systems, err := s.systems.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grading systems")
	}
	return systems, nil
}

// Activate makes one grading system the active lookup table.
func (s *GradingService) Activate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.systems.SetActive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate grading system")
	}
	s.logger.Info("grading system activated", zap.String("grading_system_id", id))
	return nil
}

func validateBands(bands []models.GradeBand) error {
	sorted := make([]models.GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPercentage < sorted[j].MinPercentage })

	for i, band := range sorted {
		if band.MaxPercentage < band.MinPercentage {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("band %q has max below min", band.Grade))
		}
		if i == 0 {
			if band.MinPercentage != 0 {
				return appErrors.Clone(appErrors.ErrValidation, "bands must start at 0")
			}
			continue
		}
		prev := sorted[i-1]
		gap := band.MinPercentage - prev.MaxPercentage
		if gap <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bands %q and %q overlap", prev.Grade, band.Grade))
		}
		if gap > bandStep+1e-9 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("gap between bands %q and %q", prev.Grade, band.Grade))
		}
	}
	if sorted[len(sorted)-1].MaxPercentage != 100 {
		return appErrors.Clone(appErrors.ErrValidation, "bands must end at 100")
	}
	return nil
}
