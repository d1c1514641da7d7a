package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"registrar/internal/grades"
	"registrar/internal/model"
	"registrar/internal/repository"
)

type GradeStore interface {
	CreateGrade(ctx context.Context, grade model.Grade) error
	GetGrade(ctx context.Context, id string) (model.Grade, error)
	UpdateGrade(ctx context.Context, grade model.Grade) error
	DeleteGrade(ctx context.Context, id string) error
	ListGradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error)
}

// StudentDirectory resolves student identities; the records themselves
// are owned by the surrounding entity CRUD, not by this core.
type StudentDirectory interface {
	GetStudent(ctx context.Context, studentID string) (model.Student, error)
}

type GradeService struct {
	store     GradeStore
	directory StudentDirectory
}

func NewGradeService(store GradeStore, directory StudentDirectory) *GradeService {
	return &GradeService{store: store, directory: directory}
}

type GradeInput struct {
	StudentID         string
	SubjectID         string
	ExamID            *string
	Score             float64
	MaxScore          float64
	AcademicYear      string
	Semester          int
	GradedByTeacherID *string
	Comments          *string
}

func (g *GradeService) Create(ctx context.Context, in GradeInput) (model.Grade, error) {
	if err := validateGradeInput(in); err != nil {
		return model.Grade{}, err
	}
	if _, err := g.directory.GetStudent(ctx, in.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Grade{}, ErrNotFound
		}
		return model.Grade{}, err
	}

	metrics, err := grades.ComputeMetrics(in.Score, in.MaxScore)
	if err != nil {
		return model.Grade{}, invalid("maxScore", err.Error())
	}

	now := time.Now().UTC()
	grade := model.Grade{
		ID:                uuid.NewString(),
		StudentID:         in.StudentID,
		SubjectID:         in.SubjectID,
		ExamID:            in.ExamID,
		Score:             in.Score,
		MaxScore:          in.MaxScore,
		Percentage:        metrics.Percentage,
		LetterGrade:       metrics.LetterGrade,
		GradePoint:        metrics.GradePoint,
		AcademicYear:      strings.TrimSpace(in.AcademicYear),
		Semester:          in.Semester,
		GradedByTeacherID: in.GradedByTeacherID,
		Comments:          in.Comments,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := g.store.CreateGrade(ctx, grade); err != nil {
		return model.Grade{}, err
	}
	return grade, nil
}

// Update rewrites the grade and recomputes the derived fields from the
// new score pair; stale percentage/letter/point values are never kept.
func (g *GradeService) Update(ctx context.Context, id string, in GradeInput) (model.Grade, error) {
	if err := validateGradeInput(in); err != nil {
		return model.Grade{}, err
	}

	grade, err := g.store.GetGrade(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Grade{}, ErrNotFound
		}
		return model.Grade{}, err
	}

	metrics, err := grades.ComputeMetrics(in.Score, in.MaxScore)
	if err != nil {
		return model.Grade{}, invalid("maxScore", err.Error())
	}

	grade.StudentID = in.StudentID
	grade.SubjectID = in.SubjectID
	grade.ExamID = in.ExamID
	grade.Score = in.Score
	grade.MaxScore = in.MaxScore
	grade.Percentage = metrics.Percentage
	grade.LetterGrade = metrics.LetterGrade
	grade.GradePoint = metrics.GradePoint
	grade.AcademicYear = strings.TrimSpace(in.AcademicYear)
	grade.Semester = in.Semester
	grade.GradedByTeacherID = in.GradedByTeacherID
	grade.Comments = in.Comments
	grade.UpdatedAt = time.Now().UTC()

	if err := g.store.UpdateGrade(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Grade{}, ErrNotFound
		}
		return model.Grade{}, err
	}
	return grade, nil
}

func (g *GradeService) Get(ctx context.Context, id string) (model.Grade, error) {
	grade, err := g.store.GetGrade(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Grade{}, ErrNotFound
	}
	return grade, err
}

func (g *GradeService) Delete(ctx context.Context, id string) error {
	err := g.store.DeleteGrade(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *GradeService) ListByStudent(ctx context.Context, studentID string) ([]model.Grade, error) {
	return g.store.ListGradesByStudent(ctx, studentID)
}

type GPAReport struct {
	StudentID     string
	StudentName   string
	SemesterGPA   float64
	CumulativeGPA float64
	TotalCredits  int
	AcademicYear  string
	Semester      int
	Grades        []model.Grade
}

// Report aggregates a student's GPA. AcademicYear and semester filter
// the semester GPA and must be supplied together or not at all; the
// cumulative GPA always covers every grade on record. Credit hours are
// not modeled on grades, so each assessment counts as one credit unit.
func (g *GradeService) Report(ctx context.Context, studentID, academicYear string, semester int) (GPAReport, error) {
	academicYear = strings.TrimSpace(academicYear)
	if (academicYear == "") != (semester == 0) {
		return GPAReport{}, invalid("semester", "academicYear and semester must be provided together")
	}
	if semester < 0 {
		return GPAReport{}, invalid("semester", "semester must be a positive number")
	}

	student, err := g.directory.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return GPAReport{}, ErrNotFound
		}
		return GPAReport{}, err
	}

	all, err := g.store.ListGradesByStudent(ctx, studentID)
	if err != nil {
		return GPAReport{}, err
	}

	filtered := all
	if academicYear != "" {
		filtered = nil
		for _, grade := range all {
			if grade.AcademicYear == academicYear && grade.Semester == semester {
				filtered = append(filtered, grade)
			}
		}
	}

	return GPAReport{
		StudentID:     studentID,
		StudentName:   strings.TrimSpace(student.FirstName + " " + student.LastName),
		SemesterGPA:   grades.Round2(grades.ComputeGPA(points(filtered))),
		CumulativeGPA: grades.Round2(grades.ComputeGPA(points(all))),
		TotalCredits:  len(all),
		AcademicYear:  academicYear,
		Semester:      semester,
		Grades:        filtered,
	}, nil
}

func points(list []model.Grade) []float64 {
	result := make([]float64, 0, len(list))
	for _, grade := range list {
		result = append(result, grade.GradePoint)
	}
	return result
}

func validateGradeInput(in GradeInput) error {
	if strings.TrimSpace(in.StudentID) == "" {
		return invalid("studentId", "studentId is required")
	}
	if strings.TrimSpace(in.SubjectID) == "" {
		return invalid("subjectId", "subjectId is required")
	}
	if in.MaxScore <= 0 {
		return invalid("maxScore", "maxScore must be positive")
	}
	if in.Score < 0 {
		return invalid("score", "score must not be negative")
	}
	if strings.TrimSpace(in.AcademicYear) == "" {
		return invalid("academicYear", "academicYear is required")
	}
	if in.Semester < 1 {
		return invalid("semester", "semester must be a positive number")
	}
	return nil
}
