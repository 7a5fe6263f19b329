package models

import "time"

// SubjectResult is the per-subject slice of a computed result.
type SubjectResult struct {
	ExamSubjectID string  `db:"exam_subject_id" json:"exam_subject_id"`
	SubjectName   string  `db:"subject_name" json:"subject_name"`
	TotalMarks    float64 `db:"total_marks" json:"total_marks"`
	PassingMarks  float64 `db:"passing_marks" json:"passing_marks"`
	MarksObtained float64 `db:"marks_obtained" json:"marks_obtained"`
	IsAbsent      bool    `db:"is_absent" json:"is_absent"`
	IsPassed      bool    `db:"is_passed" json:"is_passed"`
}

// Result aggregates one student's marks across all subjects of an exam.
// A draft result may be recomputed; once published it is immutable.
type Result struct {
	ID            string          `db:"id" json:"id"`
	ExamID        string          `db:"exam_id" json:"exam_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	ClassID       string          `db:"class_id" json:"class_id"`
	Section       string          `db:"section" json:"section"`
	TotalMarks    float64         `db:"total_marks" json:"total_marks"`
	MarksObtained float64         `db:"marks_obtained" json:"marks_obtained"`
	Percentage    float64         `db:"percentage" json:"percentage"`
	Grade         string          `db:"grade" json:"grade"`
	GradePoint    float64         `db:"grade_point" json:"grade_point"`
	MeritPosition int             `db:"merit_position" json:"merit_position"`
	IsPassed      bool            `db:"is_passed" json:"is_passed"`
	IsPublished   bool            `db:"is_published" json:"is_published"`
	PublishedAt   *time.Time      `db:"published_at" json:"published_at,omitempty"`
	ComputedAt    time.Time       `db:"computed_at" json:"computed_at"`
	Subjects      []SubjectResult `json:"subjects,omitempty"`
}

// ResultFilter scopes result listings.
type ResultFilter struct {
	ExamID    string
	StudentID string
	ClassID   string
}

// MeritRow is one entry of the class merit list.
type MeritRow struct {
	StudentID     string  `db:"student_id" json:"student_id"`
	StudentName   string  `db:"student_name" json:"student_name"`
	MarksObtained float64 `db:"marks_obtained" json:"marks_obtained"`
	Percentage    float64 `db:"percentage" json:"percentage"`
	Grade         string  `db:"grade" json:"grade"`
	MeritPosition int     `db:"merit_position" json:"merit_position"`
}
