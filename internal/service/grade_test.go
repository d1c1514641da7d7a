package service

import (
	"context"
	"errors"
	"testing"

	"registrar/internal/model"
	"registrar/internal/repository"
)

func newTestGrades() (*GradeService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	store.SeedStudent(model.Student{ID: "student-1", FirstName: "Alice", LastName: "Smith"})
	return NewGradeService(store, store), store
}

func gradeInput(score, maxScore float64, year string, semester int) GradeInput {
	return GradeInput{
		StudentID:    "student-1",
		SubjectID:    "subject-1",
		Score:        score,
		MaxScore:     maxScore,
		AcademicYear: year,
		Semester:     semester,
	}
}

func TestCreateGradeComputesDerivedFields(t *testing.T) {
	svc, _ := newTestGrades()

	grade, err := svc.Create(context.Background(), gradeInput(85, 100, "2025-2026", 1))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if grade.Percentage != 85.00 || grade.LetterGrade != "B" || grade.GradePoint != 3.0 {
		t.Fatalf("unexpected derived fields: %+v", grade)
	}
}

func TestCreateGradeValidation(t *testing.T) {
	svc, _ := newTestGrades()
	ctx := context.Background()

	_, err := svc.Create(ctx, gradeInput(50, 0, "2025-2026", 1))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Reason != "maxScore must be positive" {
		t.Fatalf("expected maxScore validation error, got %v", err)
	}

	if _, err := svc.Create(ctx, gradeInput(50, 100, "", 1)); !errors.As(err, &validationErr) {
		t.Fatalf("expected academicYear validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, gradeInput(50, 100, "2025-2026", 0)); !errors.As(err, &validationErr) {
		t.Fatalf("expected semester validation error, got %v", err)
	}
}

func TestCreateGradeUnknownStudent(t *testing.T) {
	svc, _ := newTestGrades()
	in := gradeInput(50, 100, "2025-2026", 1)
	in.StudentID = "nobody"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateGradeRecomputes(t *testing.T) {
	svc, _ := newTestGrades()
	ctx := context.Background()

	grade, err := svc.Create(ctx, gradeInput(85, 100, "2025-2026", 1))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	updated, err := svc.Update(ctx, grade.ID, gradeInput(95, 100, "2025-2026", 1))
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Percentage != 95.00 || updated.LetterGrade != "A" || updated.GradePoint != 4.0 {
		t.Fatalf("derived fields not recomputed: %+v", updated)
	}

	stored, err := svc.Get(ctx, grade.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if stored.LetterGrade != "A" {
		t.Fatalf("stale derived fields persisted: %+v", stored)
	}
}

func TestDeleteGrade(t *testing.T) {
	svc, _ := newTestGrades()
	ctx := context.Background()

	grade, err := svc.Create(ctx, gradeInput(85, 100, "2025-2026", 1))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := svc.Delete(ctx, grade.ID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if err := svc.Delete(ctx, grade.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.Get(ctx, grade.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGPAReport(t *testing.T) {
	svc, _ := newTestGrades()
	ctx := context.Background()

	// Semester 1: A (4.0) and C (2.0). Semester 2: B (3.0).
	mustCreate(t, svc, gradeInput(95, 100, "2025-2026", 1))
	mustCreate(t, svc, gradeInput(72, 100, "2025-2026", 1))
	mustCreate(t, svc, gradeInput(85, 100, "2025-2026", 2))

	report, err := svc.Report(ctx, "student-1", "2025-2026", 1)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if report.StudentName != "Alice Smith" {
		t.Fatalf("unexpected student name %q", report.StudentName)
	}
	if report.SemesterGPA != 3.0 {
		t.Fatalf("expected semester GPA 3.0, got %v", report.SemesterGPA)
	}
	if report.CumulativeGPA != 3.0 {
		t.Fatalf("expected cumulative GPA 3.0, got %v", report.CumulativeGPA)
	}
	if report.TotalCredits != 3 {
		t.Fatalf("expected 3 credits, got %d", report.TotalCredits)
	}
	if len(report.Grades) != 2 {
		t.Fatalf("expected 2 grades in the filtered set, got %d", len(report.Grades))
	}

	// Without a filter both GPAs cover everything.
	report, err = svc.Report(ctx, "student-1", "", 0)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if report.SemesterGPA != report.CumulativeGPA {
		t.Fatalf("unfiltered report must not diverge: %+v", report)
	}
	if len(report.Grades) != 3 {
		t.Fatalf("expected 3 grades, got %d", len(report.Grades))
	}
}

func TestGPAReportFilterRequiresBothOrNeither(t *testing.T) {
	svc, _ := newTestGrades()
	ctx := context.Background()

	var validationErr *ValidationError
	if _, err := svc.Report(ctx, "student-1", "2025-2026", 0); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for year without semester, got %v", err)
	}
	if _, err := svc.Report(ctx, "student-1", "", 1); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for semester without year, got %v", err)
	}
}

func TestGPAReportNoGrades(t *testing.T) {
	svc, _ := newTestGrades()

	report, err := svc.Report(context.Background(), "student-1", "", 0)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if report.SemesterGPA != 0 || report.CumulativeGPA != 0 || report.TotalCredits != 0 {
		t.Fatalf("expected zeroed report, got %+v", report)
	}
}

func TestGPAReportUnknownStudent(t *testing.T) {
	svc, _ := newTestGrades()
	if _, err := svc.Report(context.Background(), "nobody", "", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func mustCreate(t *testing.T, svc *GradeService, in GradeInput) model.Grade {
	t.Helper()
	grade, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	return grade
}
