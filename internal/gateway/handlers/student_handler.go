package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acadgrade/internal/aggregate"
	"acadgrade/internal/gateway/util"
	"acadgrade/internal/store"
)

// StudentHandler serves transcript and recomputation endpoints.
type StudentHandler struct {
	Store     store.Store
	Aggregate *aggregate.Service
}

// RESTRecomputeRequest mirrors the JSON input for POST /students/:id/recompute.
// Both fields optional; when set, only that course/term result is rebuilt
// before the GPA refresh.
type RESTRecomputeRequest struct {
	CourseID string `json:"course_id"`
	TermID   string `json:"term_id"`
}

// GetGPA handles GET /students/{id}/gpa
// Recomputes and returns the per-term transcript rows.
func (h *StudentHandler) GetGPA(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	if _, err := h.Store.StudentByID(r.Context(), studentID); err != nil {
		util.HandleEngineError(w, fmt.Errorf("student %s: %w", studentID, err))
		return
	}

	if err := h.Aggregate.RecomputeGPA(r.Context(), studentID); err != nil {
		util.HandleEngineError(w, err)
		return
	}

	transcripts, err := h.Store.TranscriptsForStudent(r.Context(), studentID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":     true,
		"student_id":  studentID,
		"transcripts": transcripts,
	}
	util.WriteJSON(w, http.StatusOK, response)
}

// GetResults handles GET /students/{id}/results
// Returns the stored course results without recomputing.
func (h *StudentHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	if _, err := h.Store.StudentByID(r.Context(), studentID); err != nil {
		util.HandleEngineError(w, fmt.Errorf("student %s: %w", studentID, err))
		return
	}

	results, err := h.Store.CourseResultsForStudent(r.Context(), studentID)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":    true,
		"student_id": studentID,
		"results":    results,
	}
	util.WriteJSON(w, http.StatusOK, response)
}

// Recompute handles POST /students/{id}/recompute
// Explicitly rebuilds derived state for the student. With a course and term
// in the body only that result is rebuilt; otherwise every stored result is.
func (h *StudentHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !canGrade(user) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: recomputation requires a faculty role")
		return
	}

	studentID := chi.URLParam(r, "id")
	if _, err := h.Store.StudentByID(r.Context(), studentID); err != nil {
		util.HandleEngineError(w, fmt.Errorf("student %s: %w", studentID, err))
		return
	}

	var req RESTRecomputeRequest
	if r.Body != nil {
		// An empty body means "recompute everything".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.CourseID != "" && req.TermID != "" {
		if err := h.Aggregate.RecomputeForStudent(r.Context(), studentID, req.CourseID, req.TermID); err != nil {
			util.HandleEngineError(w, err)
			return
		}
	} else {
		results, err := h.Store.CourseResultsForStudent(r.Context(), studentID)
		if err != nil {
			util.HandleEngineError(w, err)
			return
		}
		for _, res := range results {
			if err := h.Aggregate.RecomputeCourseResult(r.Context(), studentID, res.CourseID, res.TermID); err != nil {
				util.HandleEngineError(w, err)
				return
			}
		}
		if err := h.Aggregate.RecomputeGPA(r.Context(), studentID); err != nil {
			util.HandleEngineError(w, err)
			return
		}
	}

	response := map[string]interface{}{
		"success":    true,
		"message":    "Recomputation complete",
		"student_id": studentID,
	}
	util.WriteJSON(w, http.StatusOK, response)
}
