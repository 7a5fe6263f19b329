package models

import "time"

// GradingSystem maps percentage ranges to letter grades and grade points.
// Exactly one system is active at a time.
type GradingSystem struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
	Bands     []GradeBand `json:"bands,omitempty"`
}

// GradeBand is one contiguous percentage range of a grading system.
type GradeBand struct {
	ID              string  `db:"id" json:"id"`
	GradingSystemID string  `db:"grading_system_id" json:"grading_system_id"`
	Grade           string  `db:"grade" json:"grade"`
	GradePoint      float64 `db:"grade_point" json:"grade_point"`
	MinPercentage   float64 `db:"min_percentage" json:"min_percentage"`
	MaxPercentage   float64 `db:"max_percentage" json:"max_percentage"`
}

// Lookup returns the band covering the given percentage, or false when the
// percentage falls outside every band.
func (g *GradingSystem) Lookup(percentage float64) (GradeBand, bool) {
	for _, band := range g.Bands {
		if percentage >= band.MinPercentage && percentage <= band.MaxPercentage {
			return band, true
		}
	}
	return GradeBand{}, false
}
