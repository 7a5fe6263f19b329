package models

import "time"

// Exam is one scheduled examination for a class/section within a session.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Section   string    `db:"section" json:"section"`
	SessionID string    `db:"session_id" json:"session_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamSubject is one subject's slot within an exam, carrying the marks scale.
type ExamSubject struct {
	ID           string    `db:"id" json:"id"`
	ExamID       string    `db:"exam_id" json:"exam_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	SubjectName  string    `db:"subject_name" json:"subject_name"`
	TotalMarks   float64   `db:"total_marks" json:"total_marks"`
	PassingMarks float64   `db:"passing_marks" json:"passing_marks"`
	ExamDate     time.Time `db:"exam_date" json:"exam_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Mark is one student's score for one exam subject. MarksObtained stays nil
// while the student is flagged absent.
type Mark struct {
	ID            string    `db:"id" json:"id"`
	ExamSubjectID string    `db:"exam_subject_id" json:"exam_subject_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	MarksObtained *float64  `db:"marks_obtained" json:"marks_obtained,omitempty"`
	IsAbsent      bool      `db:"is_absent" json:"is_absent"`
	Remarks       string    `db:"remarks" json:"remarks,omitempty"`
	EnteredBy     string    `db:"entered_by" json:"entered_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsPassed reports whether the mark clears the subject's passing threshold.
// Absent students never pass.
func (m *Mark) IsPassed(subject ExamSubject) bool {
	if m.IsAbsent || m.MarksObtained == nil {
		return false
	}
	return *m.MarksObtained >= subject.PassingMarks
}

// SubjectStatistics summarises entered marks for one exam subject. Average,
// highest and lowest cover non-absent entries only.
type SubjectStatistics struct {
	ExamSubjectID string   `json:"exam_subject_id"`
	Entered       int      `json:"entered"`
	Average       *float64 `json:"average,omitempty"`
	Highest       *float64 `json:"highest,omitempty"`
	Lowest        *float64 `json:"lowest,omitempty"`
	PassCount     int      `json:"pass_count"`
	FailCount     int      `json:"fail_count"`
	AbsentCount   int      `json:"absent_count"`
}

// MarkFilter scopes mark listings.
type MarkFilter struct {
	ExamSubjectID string
	StudentID     string
}
