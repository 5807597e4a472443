package handlers

import (
	"net/http"

	"presencia-backend/internal/services"
)

type DirectoryHandler struct {
	directory *services.DirectoryService
}

func NewDirectoryHandler(directory *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

func (h *DirectoryHandler) Student(w http.ResponseWriter, r *http.Request) {
	data, err := h.directory.StudentByMatricule(r.Context(), r.URL.Query().Get("matricule"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (h *DirectoryHandler) Structure(w http.ResponseWriter, r *http.Request) {
	data, err := h.directory.Structure(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}
