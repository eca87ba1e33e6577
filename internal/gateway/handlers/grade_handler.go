package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acadgrade/internal/export"
	"acadgrade/internal/gateway/util"
	"acadgrade/internal/ingest"
	"acadgrade/internal/store"
)

// GradeHandler serves the grading endpoints. It calls the engines
// in-process; the gateway owns only HTTP concerns.
type GradeHandler struct {
	Store  store.Store
	Ingest *ingest.Service
	Export *export.Service
}

// RESTGradeRequest mirrors the JSON input for grade writes.
type RESTGradeRequest struct {
	StudentID    string   `json:"student_id"`
	AssessmentID string   `json:"assessment_id"`
	Score        *float64 `json:"score"`
	Comments     string   `json:"comments"`
}

// RESTBulkRequest mirrors the JSON input for POST /grades/bulk.
type RESTBulkRequest struct {
	Updates []ingest.GradeUpdate `json:"updates"`
}

// ApplyGrade handles POST /grades
// Creates or updates one grade record addressed by student + assessment.
func (h *GradeHandler) ApplyGrade(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: grading requires a faculty role")
		return
	}

	var req RESTGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.StudentID == "" || req.AssessmentID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "student_id and assessment_id are required")
		return
	}

	rec, warning, err := h.Ingest.ApplyGrade(r.Context(), req.StudentID, req.AssessmentID, req.Score, req.Comments, user.UserID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	var warnings []string
	if warning != "" {
		warnings = []string{warning}
	}
	util.WriteJSONWarnings(w, http.StatusOK, rec, warnings)
}

// UpdateGrade handles PUT /grades/{grade_id}
// Updates an existing grade record addressed by its ID.
func (h *GradeHandler) UpdateGrade(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: grading requires a faculty role")
		return
	}

	gradeID := chi.URLParam(r, "grade_id")
	existing, err := h.Store.Grade(r.Context(), gradeID)
	if err != nil {
		util.HandleEngineError(w, fmt.Errorf("grade %s: %w", gradeID, err))
		return
	}

	var req RESTGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	rec, warning, err := h.Ingest.ApplyGrade(r.Context(), existing.StudentID, existing.AssessmentID, req.Score, req.Comments, user.UserID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	var warnings []string
	if warning != "" {
		warnings = []string{warning}
	}
	util.WriteJSONWarnings(w, http.StatusOK, rec, warnings)
}

// BulkUpdate handles POST /grades/bulk
// Applies a batch of grade updates; each row succeeds or fails on its own.
func (h *GradeHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: grading requires a faculty role")
		return
	}

	var req RESTBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Updates) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "updates must not be empty")
		return
	}

	outcomes, warnings, err := h.Ingest.ApplyGradesBulk(r.Context(), req.Updates, user.UserID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	util.WriteJSONWarnings(w, http.StatusOK, outcomes, warnings)
}

// ImportCSV handles POST /assessments/{id}/grades/import
// Body is the raw CSV payload. Partial failures come back in the result,
// not as an HTTP error.
func (h *GradeHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: grading requires a faculty role")
		return
	}

	assessmentID := chi.URLParam(r, "id")
	result, err := h.Ingest.ImportGradesFromCSV(r.Context(), assessmentID, r.Body, user.UserID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, result)
}

// ExportCSV handles GET /assessments/{id}/grades/export
func (h *GradeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=grades_%s.csv", assessmentID))
	if err := h.Export.WriteCSV(r.Context(), assessmentID, w); err != nil {
		// Headers may already be out; best effort.
		util.HandleEngineError(w, err)
	}
}

// ExportXLSX handles GET /assessments/{id}/grades/export.xlsx
func (h *GradeHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=grades_%s.xlsx", assessmentID))
	if err := h.Export.WriteXLSX(r.Context(), assessmentID, w); err != nil {
		util.HandleEngineError(w, err)
	}
}

// ListGrades handles GET /assessments/{id}/grades
// Returns the roster joined with grade records.
func (h *GradeHandler) ListGrades(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	assessment, rows, err := h.Export.Rows(r.Context(), assessmentID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":    true,
		"assessment": assessment,
		"grades":     rows,
	}
	util.WriteJSON(w, http.StatusOK, response)
}

// Stats handles GET /assessments/{id}/stats
func (h *GradeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	stats, err := h.Ingest.Stats(r.Context(), assessmentID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, stats)
}

// Analytics handles GET /assessments/{id}/analytics
func (h *GradeHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	analytics, err := h.Export.Analyze(r.Context(), assessmentID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, analytics)
}

// SetLock handles PATCH /assessments/{id}/lock
// Body: {"locked": true|false}. Locked assessments reject all grade writes.
func (h *GradeHandler) SetLock(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: locking requires a faculty role")
		return
	}

	assessmentID := chi.URLParam(r, "id")
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.Store.SetAssessmentLock(r.Context(), assessmentID, req.Locked); err != nil {
		util.HandleEngineError(w, fmt.Errorf("assessment %s: %w", assessmentID, err))
		return
	}

	response := map[string]interface{}{
		"success": true,
		"message": "Assessment lock updated",
		"locked":  req.Locked,
	}
	util.WriteJSON(w, http.StatusOK, response)
}

// ScopeAnalytics handles GET /analytics
// Query Params: term_id, department_id, course_id (all optional)
func (h *GradeHandler) ScopeAnalytics(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		TermID:       r.URL.Query().Get("term_id"),
		DepartmentID: r.URL.Query().Get("department_id"),
		CourseID:     r.URL.Query().Get("course_id"),
	}

	analytics, err := h.Export.AnalyzeScope(r.Context(), f)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, analytics)
}
