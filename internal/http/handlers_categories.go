package http

import (
	"net/http"
	"strings"

	"dompet/internal/core"
)

const msgCategoryNotFound = "Kategori tidak ditemukan"

// handleListCategories returns the defaults and the user's own categories,
// optionally narrowed by ?type=.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.Kind(strings.TrimSpace(r.URL.Query().Get("type")))
	if kind != "" && !kind.IsValid() {
		badRequest(w, "type", "must be income or expense")
		return
	}
	cats, err := s.svc.Categories.List(r.Context(), userID(r), kind)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]core.Category{"categories": cats})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in core.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), userID(r), in)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]core.Category{"category": c})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var p core.CategoryPatch
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, err, "")
		return
	}
	c, err := s.svc.Categories.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, err, msgCategoryNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Category{"category": c})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err, msgCategoryNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Kategori berhasil dihapus"})
}
