package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/model"
	"registrar/internal/service"
)

type Server struct {
	cfg    config.Config
	auth   *service.Auth
	grades *service.GradeService
	redis  *redis.Client
}

func NewServer(cfg config.Config, authSvc *service.Auth, gradeSvc *service.GradeService, redisClient *redis.Client) *Server {
	return &Server{
		cfg:    cfg,
		auth:   authSvc,
		grades: gradeSvc,
		redis:  redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.With(s.loginRateLimit).Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Post("/auth/logout-all", s.handleLogoutAll)

	r.Route("/grades", func(r chi.Router) {
		r.With(s.authMiddleware, s.requireRole("teacher", "admin")).Post("/", s.handleCreateGrade)
		r.With(s.authMiddleware).Get("/{gradeID}", s.handleGetGrade)
		r.With(s.authMiddleware, s.requireRole("teacher", "admin")).Put("/{gradeID}", s.handleUpdateGrade)
		r.With(s.authMiddleware, s.requireRole("teacher", "admin")).Delete("/{gradeID}", s.handleDeleteGrade)
	})

	r.With(s.authMiddleware).Get("/students/{studentID}/grades", s.handleListStudentGrades)
	r.With(s.authMiddleware).Get("/students/{studentID}/gpa", s.handleStudentGPA)

	return r
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	UserID                   string    `json:"userId"`
	Email                    string    `json:"email"`
	Role                     string    `json:"role"`
	AccessToken              string    `json:"accessToken"`
	AccessTokenExpiresAtUtc  time.Time `json:"accessTokenExpiresAtUtc"`
	RefreshToken             string    `json:"refreshToken"`
	RefreshTokenExpiresAtUtc time.Time `json:"refreshTokenExpiresAtUtc"`
}

func mapTokenPair(pair service.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		UserID:                   pair.UserID,
		Email:                    pair.Email,
		Role:                     pair.Role,
		AccessToken:              pair.AccessToken,
		AccessTokenExpiresAtUtc:  pair.AccessTokenExpiresAt.UTC(),
		RefreshToken:             pair.RefreshToken,
		RefreshTokenExpiresAtUtc: pair.RefreshTokenExpiresAt.UTC(),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, err := s.auth.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	}, sessionMeta(r))
	if err != nil {
		authOutcomes.WithLabelValues("register", "failure").Inc()
		s.writeServiceError(w, err)
		return
	}

	authOutcomes.WithLabelValues("register", "success").Inc()
	writeJSON(w, http.StatusCreated, mapTokenPair(pair))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, err := s.auth.Login(r.Context(), req.Email, req.Password, sessionMeta(r))
	if err != nil {
		authOutcomes.WithLabelValues("login", "failure").Inc()
		s.writeServiceError(w, err)
		return
	}

	authOutcomes.WithLabelValues("login", "success").Inc()
	writeJSON(w, http.StatusOK, mapTokenPair(pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken, sessionMeta(r))
	if err != nil {
		authOutcomes.WithLabelValues("refresh", "failure").Inc()
		s.writeServiceError(w, err)
		return
	}

	authOutcomes.WithLabelValues("refresh", "success").Inc()
	writeJSON(w, http.StatusOK, mapTokenPair(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Logout is tolerant: an empty body counts as a missing token.
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if err := s.auth.LogoutAll(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gradeRequest struct {
	StudentID         string  `json:"studentId"`
	SubjectID         string  `json:"subjectId"`
	ExamID            *string `json:"examId,omitempty"`
	Score             float64 `json:"score"`
	MaxScore          float64 `json:"maxScore"`
	Comments          *string `json:"comments,omitempty"`
	GradedByTeacherID *string `json:"gradedByTeacherId,omitempty"`
	AcademicYear      string  `json:"academicYear"`
	Semester          int     `json:"semester"`
}

func (req gradeRequest) input() service.GradeInput {
	return service.GradeInput{
		StudentID:         req.StudentID,
		SubjectID:         req.SubjectID,
		ExamID:            req.ExamID,
		Score:             req.Score,
		MaxScore:          req.MaxScore,
		AcademicYear:      req.AcademicYear,
		Semester:          req.Semester,
		GradedByTeacherID: req.GradedByTeacherID,
		Comments:          req.Comments,
	}
}

type gradeResponse struct {
	ID                string  `json:"id"`
	StudentID         string  `json:"studentId"`
	SubjectID         string  `json:"subjectId"`
	ExamID            *string `json:"examId,omitempty"`
	Score             float64 `json:"score"`
	MaxScore          float64 `json:"maxScore"`
	Percentage        float64 `json:"percentage"`
	LetterGrade       string  `json:"letterGrade"`
	GradePoint        float64 `json:"gradePoint"`
	AcademicYear      string  `json:"academicYear"`
	Semester          int     `json:"semester"`
	GradedByTeacherID *string `json:"gradedByTeacherId,omitempty"`
	Comments          *string `json:"comments,omitempty"`
}

func mapGrade(grade model.Grade) gradeResponse {
	return gradeResponse{
		ID:                grade.ID,
		StudentID:         grade.StudentID,
		SubjectID:         grade.SubjectID,
		ExamID:            grade.ExamID,
		Score:             grade.Score,
		MaxScore:          grade.MaxScore,
		Percentage:        grade.Percentage,
		LetterGrade:       grade.LetterGrade,
		GradePoint:        grade.GradePoint,
		AcademicYear:      grade.AcademicYear,
		Semester:          grade.Semester,
		GradedByTeacherID: grade.GradedByTeacherID,
		Comments:          grade.Comments,
	}
}

func mapGrades(list []model.Grade) []gradeResponse {
	result := make([]gradeResponse, 0, len(list))
	for _, grade := range list {
		result = append(result, mapGrade(grade))
	}
	return result
}

func (s *Server) handleCreateGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	grade, err := s.grades.Create(r.Context(), req.input())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapGrade(grade))
}

func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	grade, err := s.grades.Get(r.Context(), chi.URLParam(r, "gradeID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGrade(grade))
}

func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	grade, err := s.grades.Update(r.Context(), chi.URLParam(r, "gradeID"), req.input())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGrade(grade))
}

func (s *Server) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	if err := s.grades.Delete(r.Context(), chi.URLParam(r, "gradeID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStudentGrades(w http.ResponseWriter, r *http.Request) {
	list, err := s.grades.ListByStudent(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGrades(list))
}

type gpaResponse struct {
	StudentID     string          `json:"studentId"`
	StudentName   string          `json:"studentName"`
	SemesterGPA   float64         `json:"semesterGPA"`
	CumulativeGPA float64         `json:"cumulativeGPA"`
	TotalCredits  int             `json:"totalCredits"`
	AcademicYear  string          `json:"academicYear,omitempty"`
	Semester      int             `json:"semester,omitempty"`
	Grades        []gradeResponse `json:"grades"`
}

func (s *Server) handleStudentGPA(w http.ResponseWriter, r *http.Request) {
	semester := 0
	if raw := r.URL.Query().Get("semester"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "semester must be a number")
			return
		}
		semester = parsed
	}

	report, err := s.grades.Report(r.Context(), chi.URLParam(r, "studentID"), r.URL.Query().Get("academicYear"), semester)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gpaResponse{
		StudentID:     report.StudentID,
		StudentName:   report.StudentName,
		SemesterGPA:   report.SemesterGPA,
		CumulativeGPA: report.CumulativeGPA,
		TotalCredits:  report.TotalCredits,
		AcademicYear:  report.AcademicYear,
		Semester:      report.Semester,
		Grades:        mapGrades(report.Grades),
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route on the role claim; roles compare
// case-insensitively.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			role := strings.ToLower(claims.Role)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_session")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func sessionMeta(r *http.Request) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
