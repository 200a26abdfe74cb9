package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PinnedCategoryID is the pseudo-category for links shown in the pinned strip.
// It never appears in the category list itself.
const PinnedCategoryID = "pinned"

// DefaultCategoryID is the category the browser extension targets when it has
// no categories cached.
const DefaultCategoryID = "common"

var (
	ErrDuplicateLinkID = errors.New("duplicate link id")
	ErrInvalidCategory = errors.New("link references unknown category")
	ErrEmptyLinkID     = errors.New("link id is empty")
)

// LinkItem represents a single saved link on the dashboard.
type LinkItem struct {
	// ID is opaque and immutable once assigned.
	ID string `json:"id"`

	Title string `json:"title"`

	URL string `json:"url"`

	// Description is filled either by the user or by the enrichment batch.
	Description string `json:"description,omitempty"`

	// Icon is an image URL or data URL.
	Icon string `json:"icon,omitempty"`

	// CategoryID references a Category.ID or PinnedCategoryID.
	CategoryID string `json:"categoryId"`

	// CreatedAt is unix milliseconds, as the dashboard stores it.
	CreatedAt int64 `json:"createdAt,omitempty"`

	VisitCount int `json:"visitCount,omitempty"`

	// LastVisitedAt is unix milliseconds; zero means never visited.
	LastVisitedAt int64 `json:"lastVisitedAt,omitempty"`
}

// HasDescription reports whether the link carries a non-blank description.
func (l LinkItem) HasDescription() bool {
	return strings.TrimSpace(l.Description) != ""
}

// Category groups links in the sidebar.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	// Password, when set, keeps the category's links locked until unlocked for the session.
	Password string `json:"password,omitempty"`
}

// Locked reports whether the category is password protected.
func (c Category) Locked() bool {
	return c.Password != ""
}

// DefaultCategories is what an empty store starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: DefaultCategoryID, Name: "常用推荐", Icon: "Star"},
	}
}

// NormalizeURL strips one trailing slash and lowercases the URL. It is the
// comparison used for duplicate-save warnings.
func NormalizeURL(u string) string {
	return strings.ToLower(strings.TrimSuffix(u, "/"))
}

// ContainsURL reports whether any link in links points to the same normalised URL.
func ContainsURL(links []LinkItem, u string) bool {
	if u == "" {
		return false
	}
	target := NormalizeURL(u)
	for _, l := range links {
		if l.URL != "" && NormalizeURL(l.URL) == target {
			return true
		}
	}
	return false
}

// ValidateCollection checks that link ids are unique and non-empty and that
// every link references an existing category or the pinned pseudo-category.
func ValidateCollection(links []LinkItem, categories []Category) error {
	known := make(map[string]struct{}, len(categories)+1)
	known[PinnedCategoryID] = struct{}{}
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l.ID == "" {
			return fmt.Errorf("%w: %q", ErrEmptyLinkID, l.URL)
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateLinkID, l.ID)
		}
		seen[l.ID] = struct{}{}
		if _, ok := known[l.CategoryID]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidCategory, l.ID, l.CategoryID)
		}
	}
	return nil
}

// CategoryExists reports whether id names a category in categories or the pinned pseudo-category.
func CategoryExists(categories []Category, id string) bool {
	if id == PinnedCategoryID {
		return true
	}
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CloneLinks returns a copy of links that can be mutated independently.
func CloneLinks(links []LinkItem) []LinkItem {
	if links == nil {
		return nil
	}
	out := make([]LinkItem, len(links))
	copy(out, links)
	return out
}
