package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cloudnav/internal/theme"
)

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, theme.All())
}

// handleTheme falls back to the default theme for unknown ids.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, theme.Lookup(chi.URLParam(r, "id")))
}
