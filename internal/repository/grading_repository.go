package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// GradingRepository persists grading systems and their bands.
type GradingRepository struct {
	db *sqlx.DB
}

// NewGradingRepository creates a new grading repository.
func NewGradingRepository(db *sqlx.DB) *GradingRepository {
	return &GradingRepository{db: db}
}

// Create inserts a grading system together with its bands in one transaction.
func (r *GradingRepository) Create(ctx context.Context, system *models.GradingSystem) error {
	if system.ID == "" {
		system.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	system.CreatedAt = now
	system.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grading tx: %w", err)
	}
	const insertSystem = `INSERT INTO grading_systems (id, name, active, created_at, updated_at)
        VALUES (:id, :name, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertSystem, system); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert grading system: %w", err)
	}
	for i := range system.Bands {
		if system.Bands[i].ID == "" {
			system.Bands[i].ID = uuid.NewString()
		}
		system.Bands[i].GradingSystemID = system.ID
		const insertBand = `INSERT INTO grade_bands (id, grading_system_id, grade, grade_point, min_percentage, max_percentage)
            VALUES (:id, :grading_system_id, :grade, :grade_point, :min_percentage, :max_percentage)`
		if _, err := tx.NamedExecContext(ctx, insertBand, system.Bands[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert grade band: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grading tx: %w", err)
	}
	return nil
}

// FindByID loads a grading system with its bands.
func (r *GradingRepository) FindByID(ctx context.Context, id string) (*models.GradingSystem, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM grading_systems WHERE id = $1`
	var system models.GradingSystem
	if err := r.db.GetContext(ctx, &system, query, id); err != nil {
		return nil, err
	}
	if err := r.loadBands(ctx, &system); err != nil {
		return nil, err
	}
	return &system, nil
}

// FindActive loads the active grading system with its bands.
func (r *GradingRepository) FindActive(ctx context.Context) (*models.GradingSystem, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM grading_systems WHERE active = true`
	var system models.GradingSystem
	if err := r.db.GetContext(ctx, &system, query); err != nil {
		return nil, err
	}
	if err := r.loadBands(ctx, &system); err != nil {
		return nil, err
	}
	return &system, nil
}

// List returns all grading systems without band expansion.
func (r *GradingRepository) List(ctx context.Context) ([]models.GradingSystem, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM grading_systems ORDER BY created_at DESC`
	var systems []models.GradingSystem
	if err := r.db.SelectContext(ctx, &systems, query); err != nil {
		return nil, fmt.Errorf("list grading systems: %w", err)
	}
	return systems, nil
}

// SetActive marks one system active and deactivates the rest atomically.
func (r *GradingRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grading_systems SET active = false WHERE active = true`); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("deactivate grading systems: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE grading_systems SET active = true, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("activate grading system: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("grading system %s not found", id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate tx: %w", err)
	}
	return nil
}

func (r *GradingRepository) loadBands(ctx context.Context, system *models.GradingSystem) error {
	const query = `SELECT id, grading_system_id, grade, grade_point, min_percentage, max_percentage
        FROM grade_bands WHERE grading_system_id = $1 ORDER BY min_percentage ASC`
	if err := r.db.SelectContext(ctx, &system.Bands, query, system.ID); err != nil {
		return fmt.Errorf("load grade bands: %w", err)
	}
	return nil
}
