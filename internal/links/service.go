// Package links creates dashboard links on behalf of the HTTP API and the
// Telegram bot so both ingress paths apply the same defaults.
package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
	"cloudnav/internal/scraper"
	"cloudnav/internal/storage"
)

// UntitledTitle is used when neither the caller nor the scraper provides a title.
const UntitledTitle = "未命名"

var ErrInvalidURL = errors.New("link url must be an absolute http(s) url")

// NewLink is a link creation request, shaped like the body the browser
// extension sends to /api/link.
type NewLink struct {
	Title       string
	URL         string
	CategoryID  string
	Icon        string
	Description string
}

// Created is the stored link plus whether its URL was already saved.
type Created struct {
	Link      domain.LinkItem
	Duplicate bool
}

// Service creates links.
type Service struct {
	repo    storage.Repository
	scraper scraper.Scraper
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a Service. scraper may be nil.
func NewService(repo storage.Repository, s scraper.Scraper, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:    repo,
		scraper: s,
		log:     logger.WithField("component", "link_service"),
		now:     time.Now,
	}
}

// Create validates req, fills the defaults and unshifts the link into the
// stored list. Saving a URL that already exists is allowed; the result flags it.
func (s *Service) Create(ctx context.Context, req NewLink) (Created, error) {
	log := s.log.WithField("url", req.URL)

	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Created{}, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}

	existing, categories, err := s.repo.GetData(ctx)
	if err != nil {
		return Created{}, err
	}

	categoryID := req.CategoryID
	if categoryID == "" {
		categoryID = FirstCategoryID(categories)
	}
	if !domain.CategoryExists(categories, categoryID) {
		return Created{}, fmt.Errorf("%w: %s", domain.ErrInvalidCategory, categoryID)
	}

	icon := req.Icon
	if icon == "" {
		settings, _, err := s.repo.GetWebsiteConfig(ctx)
		if err != nil {
			return Created{}, err
		}
		icon = settings.WithDefaults().FaviconURLFor(strings.ToLower(u.Hostname()))
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" && s.scraper != nil {
		scraped, desc, err := s.scraper.ScrapeMetadata(ctx, u.String())
		if err != nil {
			log.WithError(err).Warn("Scraping failed, using fallback title")
		} else {
			title = scraped
			if description == "" {
				description = desc
			}
		}
	}
	if title == "" {
		title = UntitledTitle
	}

	link := domain.LinkItem{
		ID:          uuid.NewString(),
		Title:       title,
		URL:         u.String(),
		Description: description,
		Icon:        icon,
		CategoryID:  categoryID,
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.repo.AddLink(ctx, link); err != nil {
		return Created{}, err
	}

	duplicate := domain.ContainsURL(existing, link.URL)
	log.WithFields(logrus.Fields{
		"link_id":     link.ID,
		"category_id": categoryID,
		"duplicate":   duplicate,
	}).Info("Link created")
	return Created{Link: link, Duplicate: duplicate}, nil
}

// FirstCategoryID returns the id of the first category, or the default id.
func FirstCategoryID(categories []domain.Category) string {
	if len(categories) == 0 {
		return domain.DefaultCategoryID
	}
	return categories[0].ID
}
