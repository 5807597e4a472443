package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"presencia-backend/internal/repository"
)

type CourseHandler struct {
	courseRepo *repository.CourseRepo
}

func NewCourseHandler(courseRepo *repository.CourseRepo) *CourseHandler {
	return &CourseHandler{courseRepo: courseRepo}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load courses", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": courses})
}

func (h *CourseHandler) ListByTeacher(w http.ResponseWriter, r *http.Request) {
	teacherID, err := uuid.Parse(r.URL.Query().Get("teacher_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"teacher_id": "Valid teacher ID is required"}, r))
		return
	}

	courses, err := h.courseRepo.ListByTeacher(r.Context(), teacherID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load courses", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": courses})
}
