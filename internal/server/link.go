package server

import (
	"errors"
	"net/http"

	"cloudnav/internal/domain"
	"cloudnav/internal/links"
)

type createLinkInput struct {
	Title       string `json:"title" validate:"max=500"`
	URL         string `json:"url" validate:"required,url"`
	CategoryID  string `json:"categoryId" validate:"max=100"`
	Icon        string `json:"icon"`
	Description string `json:"description" validate:"max=1000"`
}

type createLinkResponse struct {
	Success   bool            `json:"success"`
	Link      domain.LinkItem `json:"link"`
	Duplicate bool            `json:"duplicate"`
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var in createLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	created, err := s.links.Create(r.Context(), links.NewLink{
		Title:       in.Title,
		URL:         in.URL,
		CategoryID:  in.CategoryID,
		Icon:        in.Icon,
		Description: in.Description,
	})
	switch {
	case errors.Is(err, links.ErrInvalidURL), errors.Is(err, domain.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to save link")
		return
	}

	writeJSON(w, http.StatusCreated, createLinkResponse{Success: true, Link: created.Link, Duplicate: created.Duplicate})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	links, categories, err := s.repo.GetData(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	if !s.authorized(r) {
		links, _ = publicView(links, categories)
	}
	writeJSON(w, http.StatusOK, domain.RankByVisits(links))
}
