package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"cloudnav/internal/domain"
	"cloudnav/internal/theme"
)

var (
	ErrUnknownConfigKind = errors.New("unknown config kind")
	ErrAIConfigRejected  = errors.New("ai config is stored on the client only")
	ErrEmptyUpdate       = errors.New("request carries neither links nor categories")
)

type storageResponse struct {
	Links      []domain.LinkItem `json:"links"`
	Categories []domain.Category `json:"categories"`
}

type storageRequest struct {
	SaveConfig string             `json:"saveConfig"`
	Config     json.RawMessage    `json:"config"`
	AuthOnly   bool               `json:"authOnly"`
	Links      *[]domain.LinkItem `json:"links"`
	Categories *[]domain.Category `json:"categories"`
}

type authResponse struct {
	Success            bool `json:"success"`
	PasswordExpiryDays int  `json:"passwordExpiryDays"`
}

// websiteConfigInput mirrors domain.SiteSettings with validation rules.
type websiteConfigInput struct {
	Title              string `json:"title" validate:"max=200"`
	NavTitle           string `json:"navTitle" validate:"max=100"`
	Favicon            string `json:"favicon"`
	FaviconAPI         string `json:"faviconApi" validate:"omitempty,url"`
	CardStyle          string `json:"cardStyle" validate:"omitempty,oneof=simple detailed"`
	PasswordExpiryDays *int   `json:"passwordExpiryDays" validate:"omitempty,min=0"`
	EnablePinnedSites  *bool  `json:"enablePinnedSites"`
	DisplayTheme       string `json:"displayTheme"`
}

func (in websiteConfigInput) settings() domain.SiteSettings {
	return domain.SiteSettings{
		Title:              in.Title,
		NavTitle:           in.NavTitle,
		Favicon:            in.Favicon,
		FaviconAPI:         in.FaviconAPI,
		CardStyle:          in.CardStyle,
		PasswordExpiryDays: in.PasswordExpiryDays,
		EnablePinnedSites:  in.EnablePinnedSites,
		DisplayTheme:       in.DisplayTheme,
	}
}

func (s *Server) handleGetStorage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if kind := r.URL.Query().Get("getConfig"); kind != "" {
		if kind != domain.ConfigKindWebsite {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %q", ErrUnknownConfigKind, kind))
			return
		}
		settings, _, err := s.repo.GetWebsiteConfig(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load website config")
			return
		}
		writeJSON(w, http.StatusOK, settings.WithDefaults())
		return
	}

	links, categories, err := s.repo.GetData(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	if !s.authorized(r) {
		links, categories = publicView(links, categories)
	}
	writeJSON(w, http.StatusOK, storageResponse{Links: links, Categories: categories})
}

// publicView hides category passwords and the links of locked categories.
func publicView(links []domain.LinkItem, categories []domain.Category) ([]domain.LinkItem, []domain.Category) {
	locked := map[string]bool{}
	outCats := make([]domain.Category, 0, len(categories))
	for _, c := range categories {
		if c.Locked() {
			locked[c.ID] = true
		}
		c.Password = ""
		outCats = append(outCats, c)
	}
	outLinks := make([]domain.LinkItem, 0, len(links))
	for _, l := range links {
		if !locked[l.CategoryID] {
			outLinks = append(outLinks, l)
		}
	}
	return outLinks, outCats
}

func (s *Server) handlePostStorage(w http.ResponseWriter, r *http.Request) {
	var req storageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	switch {
	case req.AuthOnly:
		s.handleAuthOnly(w, r)
	case req.SaveConfig != "":
		s.handleSaveConfig(w, r, req)
	default:
		s.handleSaveData(w, r, req)
	}
}

func (s *Server) handleAuthOnly(w http.ResponseWriter, r *http.Request) {
	settings, _, err := s.repo.GetWebsiteConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load website config")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, PasswordExpiryDays: settings.ExpiryDays()})
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request, req storageRequest) {
	log := s.log.WithField("kind", req.SaveConfig)

	switch req.SaveConfig {
	case domain.ConfigKindWebsite:
	case domain.ConfigKindAI:
		log.Warn("Refused to store AI config on the server")
		writeError(w, http.StatusBadRequest, ErrAIConfigRejected.Error())
		return
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %q", ErrUnknownConfigKind, req.SaveConfig))
		return
	}

	var in websiteConfigInput
	if len(req.Config) == 0 || json.Unmarshal(req.Config, &in) != nil {
		writeError(w, http.StatusBadRequest, "config must be a website settings object")
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if in.DisplayTheme != "" && !theme.Exists(in.DisplayTheme) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown displayTheme %q", in.DisplayTheme))
		return
	}

	if err := s.repo.SaveWebsiteConfig(r.Context(), in.settings()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save website config")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleSaveData replaces whichever lists are present. The resulting
// collection must satisfy the id and category invariants.
func (s *Server) handleSaveData(w http.ResponseWriter, r *http.Request, req storageRequest) {
	if req.Links == nil && req.Categories == nil {
		writeError(w, http.StatusBadRequest, ErrEmptyUpdate.Error())
		return
	}
	ctx := r.Context()

	currentLinks, currentCats, err := s.repo.GetData(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	var newLinks []domain.LinkItem
	var newCats []domain.Category
	if req.Links != nil {
		newLinks = *req.Links
		currentLinks = newLinks
	}
	if req.Categories != nil {
		newCats = *req.Categories
		currentCats = newCats
	}
	if err := domain.ValidateCollection(currentLinks, currentCats); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.SaveData(ctx, newLinks, newCats); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save data")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed %q validation", fe.Field(), fe.Tag())
}
