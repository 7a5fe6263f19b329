package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	"github.com/noah-isme/sma-sis-api/internal/repository"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type resultRepo interface {
	UpsertDraft(ctx context.Context, result *models.Result) error
	FindByExamStudent(ctx context.Context, examID, studentID string) (*models.Result, error)
	ListByExam(ctx context.Context, examID string) ([]models.Result, error)
	MeritList(ctx context.Context, examID string) ([]models.MeritRow, error)
	PublishExam(ctx context.Context, examID string, publishedAt time.Time) (int64, error)
	UpdateMeritPositions(ctx context.Context, examID string, positions map[string]int) error
}

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error)
}

type examMarksReader interface {
	ListByExamStudent(ctx context.Context, examID, studentID string) (map[string]models.Mark, error)
	ListByExam(ctx context.Context, examID string) (map[string][]models.Mark, error)
}

type activeGradingReader interface {
	FindActive(ctx context.Context) (*models.GradingSystem, error)
}

type resultMetrics interface {
	ObserveResultComputed()
	ObserveResultsPublished(count int64)
}

// ClassComputation summarises a class-wide recomputation run.
type ClassComputation struct {
	Computed   int      `json:"computed"`
	Incomplete []string `json:"incomplete,omitempty"`
}

// ResultService aggregates marks into exam results with grades and merit
// positions.
type ResultService struct {
	results   resultRepo
	exams     examReader
	marks     examMarksReader
	grading   activeGradingReader
	metrics   resultMetrics
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs ResultService. The cache is optional; when nil
// merit lists always hit the database.
func NewResultService(results resultRepo, exams examReader, marks examMarksReader, grading activeGradingReader, metrics resultMetrics, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		exams:     exams,
		marks:     marks,
		grading:   grading,
		metrics:   metrics,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

func meritListCacheKey(examID string) string {
	return "merit-list:" + examID
}

// Compute aggregates one student's marks across every subject of the exam into
// a draft result. Every exam subject must have an entered mark row; otherwise
// the computation reports the missing subjects instead of defaulting to zero.
// Absentees contribute zero obtained marks while their subject's full marks
// stay in the denominator. Merit positions for the exam's drafts are rewritten
// afterwards.
func (s *ResultService) Compute(ctx context.Context, examID, studentID string) (*models.Result, error) {
	exam, subjects, grading, err := s.loadComputationScope(ctx, examID)
	if err != nil {
		return nil, err
	}

	existing, err := s.results.FindByExamStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect result")
	}
	if existing != nil && existing.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrPublished, "result already published")
	}

	marks, err := s.marks.ListByExamStudent(ctx, examID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	result, err := buildResult(exam, studentID, subjects, marks, grading)
	if err != nil {
		return nil, err
	}

	if err := s.results.UpsertDraft(ctx, result); err != nil {
		if errors.Is(err, repository.ErrResultPublished) {
			return nil, appErrors.Clone(appErrors.ErrPublished, "result already published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save result")
	}
	if err := s.refreshMeritPositions(ctx, examID); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveResultComputed()
	}

	return s.Get(ctx, examID, studentID)
}

// ComputeClass recomputes every student of the exam who has a complete set of
// marks, skipping and reporting incomplete students, then assigns merit
// positions across the computed drafts.
func (s *ResultService) ComputeClass(ctx context.Context, examID string) (*ClassComputation, error) {
	exam, subjects, grading, err := s.loadComputationScope(ctx, examID)
	if err != nil {
		return nil, err
	}
	marksByStudent, err := s.marks.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	summary := &ClassComputation{}
	for studentID, studentMarks := range marksByStudent {
		marks := make(map[string]models.Mark, len(studentMarks))
		for _, m := range studentMarks {
			marks[m.ExamSubjectID] = m
		}
		result, err := buildResult(exam, studentID, subjects, marks, grading)
		if err != nil {
			if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrIncomplete.Code {
				summary.Incomplete = append(summary.Incomplete, studentID)
				continue
			}
			return nil, err
		}
		if err := s.results.UpsertDraft(ctx, result); err != nil {
			if errors.Is(err, repository.ErrResultPublished) {
				return nil, appErrors.Clone(appErrors.ErrPublished, "result already published")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save result")
		}
		summary.Computed++
		if s.metrics != nil {
			s.metrics.ObserveResultComputed()
		}
	}
	sort.Strings(summary.Incomplete)

	if err := s.refreshMeritPositions(ctx, examID); err != nil {
		return nil, err
	}
	return summary, nil
}

// Get loads one computed result.
func (s *ResultService) Get(ctx context.Context, examID, studentID string) (*models.Result, error) {
	result, err := s.results.FindByExamStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return result, nil
}

// MeritList returns the exam's ranked merit rows, served from cache when a
// fresh copy exists. The boolean reports whether the rows came from cache so
// the handler can surface it in the response metadata.
func (s *ResultService) MeritList(ctx context.Context, examID string) ([]models.MeritRow, bool, error) {
	key := meritListCacheKey(examID)
	var cached []models.MeritRow
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}
	rows, err := s.results.MeritList(ctx, examID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load merit list")
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, false, nil
}

// Publish flips every draft result of the exam to published. Publishing is a
// one-way transition; a second call conflicts.
func (s *ResultService) Publish(ctx context.Context, examID string) (int64, error) {
	published, err := s.results.PublishExam(ctx, examID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish results")
	}
	if published == 0 {
		return 0, appErrors.Clone(appErrors.ErrConflict, "no draft results to publish")
	}
	if s.metrics != nil {
		s.metrics.ObserveResultsPublished(published)
	}
	_ = s.cache.Invalidate(ctx, meritListCacheKey(examID))
	s.logger.Info("results published", zap.String("exam_id", examID), zap.Int64("count", published))
	return published, nil
}

func (s *ResultService) loadComputationScope(ctx context.Context, examID string) (*models.Exam, []models.ExamSubject, *models.GradingSystem, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subjects")
	}
	if len(subjects) == 0 {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam has no subjects")
	}
	grading, err := s.grading.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active grading system")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading system")
	}
	return exam, subjects, grading, nil
}

func (s *ResultService) refreshMeritPositions(ctx context.Context, examID string) error {
	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	totals := make([]studentTotal, 0, len(results))
	for _, r := range results {
		totals = append(totals, studentTotal{StudentID: r.StudentID, Obtained: r.MarksObtained})
	}
	positions := assignMeritPositions(totals)
	if err := s.results.UpdateMeritPositions(ctx, examID, positions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update merit positions")
	}
	_ = s.cache.Invalidate(ctx, meritListCacheKey(examID))
	return nil
}

// buildResult folds one student's marks into a result. The grading table is an
// explicit input rather than ambient state so callers control which system
// applies.
func buildResult(exam *models.Exam, studentID string, subjects []models.ExamSubject, marks map[string]models.Mark, grading *models.GradingSystem) (*models.Result, error) {
	var missing []string
	var obtained, possible float64
	subjectResults := make([]models.SubjectResult, 0, len(subjects))
	allPassed := true

	for _, subject := range subjects {
		mark, ok := marks[subject.ID]
		if !ok {
			missing = append(missing, subject.SubjectName)
			continue
		}
		sr := models.SubjectResult{
			ExamSubjectID: subject.ID,
			SubjectName:   subject.SubjectName,
			TotalMarks:    subject.TotalMarks,
			PassingMarks:  subject.PassingMarks,
			IsAbsent:      mark.IsAbsent,
		}
		if !mark.IsAbsent && mark.MarksObtained == nil {
			missing = append(missing, subject.SubjectName)
			continue
		}
		if !mark.IsAbsent {
			sr.MarksObtained = *mark.MarksObtained
		}
		sr.IsPassed = mark.IsPassed(subject)
		if !sr.IsPassed {
			allPassed = false
		}
		obtained += sr.MarksObtained
		possible += subject.TotalMarks
		subjectResults = append(subjectResults, sr)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, appErrors.Clone(appErrors.ErrIncomplete, fmt.Sprintf("marks missing for: %s", strings.Join(missing, ", ")))
	}
	if possible <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam subjects carry no marks")
	}

	percentage := models.Round2(obtained / possible * 100)
	band, ok := grading.Lookup(percentage)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "percentage outside grading table")
	}

	return &models.Result{
		ExamID:        exam.ID,
		StudentID:     studentID,
		ClassID:       exam.ClassID,
		Section:       exam.Section,
		TotalMarks:    possible,
		MarksObtained: obtained,
		Percentage:    percentage,
		Grade:         band.Grade,
		GradePoint:    band.GradePoint,
		IsPassed:      allPassed,
		Subjects:      subjectResults,
	}, nil
}

type studentTotal struct {
	StudentID string
	Obtained  float64
}

// assignMeritPositions ranks students by total marks descending using
// competition ranking: equal totals share a rank and the next distinct total
// takes its ordinal position (90, 90, 80 ranks as 1, 1, 3).
func assignMeritPositions(totals []studentTotal) map[string]int {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Obtained != totals[j].Obtained {
			return totals[i].Obtained > totals[j].Obtained
		}
		return totals[i].StudentID < totals[j].StudentID
	})
	positions := make(map[string]int, len(totals))
	rank := 0
	var prev float64
	for i, t := range totals {
		if i == 0 || t.Obtained != prev {
			rank = i + 1
			prev = t.Obtained
		}
		positions[t.StudentID] = rank
	}
	return positions
}
