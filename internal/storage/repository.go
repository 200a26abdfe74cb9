package storage

import (
	"context"
	"errors"

	"cloudnav/internal/domain"
)

// ErrLinkExists is returned by AddLink when the id is already taken.
var ErrLinkExists = errors.New("link id already exists")

// Repository defines the key-value persistence behind the config store API.
// Writes of the link list are whole-list replacements; the last writer wins.
type Repository interface {
	// GetWebsiteConfig returns the stored site settings and whether any were stored.
	GetWebsiteConfig(ctx context.Context) (domain.SiteSettings, bool, error)

	// SaveWebsiteConfig replaces the stored site settings.
	SaveWebsiteConfig(ctx context.Context, settings domain.SiteSettings) error

	// GetData returns the link and category lists. An empty store yields the
	// default categories.
	GetData(ctx context.Context) ([]domain.LinkItem, []domain.Category, error)

	// SaveData replaces the lists that are non-nil, atomically.
	SaveData(ctx context.Context, links []domain.LinkItem, categories []domain.Category) error

	// AddLink puts link at the front of the link list.
	AddLink(ctx context.Context, link domain.LinkItem) error

	// Close gracefully shuts down the repository connection.
	Close() error
}
