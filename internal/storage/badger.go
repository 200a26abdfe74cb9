package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
)

// Keys of the three documents kept in the store.
const (
	keyWebsiteConfig = "website_config"
	keyLinks         = "links"
	keyCategories    = "categories"
)

// BadgerRepository implements the Repository interface using BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository creates and initializes a new BadgerDB repository.
// It opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}
	return openBadger(opts, logger)
}

// NewInMemoryBadgerRepository opens a repository that never touches disk.
func NewInMemoryBadgerRepository(logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}
	return openBadger(opts, logger)
}

func openBadger(opts badger.Options, logger logrus.FieldLogger) (*BadgerRepository, error) {
	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %q: %w", opts.Dir, err)
	}
	logger.WithField("path", opts.Dir).Info("BadgerDB opened")

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB...")
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	r.log.Info("BadgerDB closed.")
	return nil
}

// GetWebsiteConfig loads the stored site settings.
func (r *BadgerRepository) GetWebsiteConfig(ctx context.Context) (domain.SiteSettings, bool, error) {
	var settings domain.SiteSettings
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, keyWebsiteConfig, &settings)
		return err
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to read website config")
		return domain.SiteSettings{}, false, fmt.Errorf("failed to get website config: %w", err)
	}
	return settings, found, nil
}

// SaveWebsiteConfig replaces the stored site settings.
func (r *BadgerRepository) SaveWebsiteConfig(ctx context.Context, settings domain.SiteSettings) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, keyWebsiteConfig, settings)
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to save website config")
		return fmt.Errorf("failed to save website config: %w", err)
	}
	r.log.WithField("nav_title", settings.NavTitle).Info("Website config saved")
	return nil
}

// GetData returns links and categories.
func (r *BadgerRepository) GetData(ctx context.Context) ([]domain.LinkItem, []domain.Category, error) {
	var (
		links      []domain.LinkItem
		categories []domain.Category
	)
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		links, categories, err = readData(txn)
		return err
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to read links and categories")
		return nil, nil, fmt.Errorf("failed to get data: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"link_count":     len(links),
		"category_count": len(categories),
	}).Debug("Data retrieved")
	return links, categories, nil
}

// SaveData replaces the non-nil lists in a single transaction.
func (r *BadgerRepository) SaveData(ctx context.Context, links []domain.LinkItem, categories []domain.Category) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if links != nil {
			if err := setJSON(txn, keyLinks, links); err != nil {
				return err
			}
		}
		if categories != nil {
			if err := setJSON(txn, keyCategories, categories); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to save links and categories")
		return fmt.Errorf("failed to save data: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"links_replaced":      links != nil,
		"categories_replaced": categories != nil,
	}).Info("Data saved")
	return nil
}

// AddLink unshifts link into the stored list.
func (r *BadgerRepository) AddLink(ctx context.Context, link domain.LinkItem) error {
	log := r.log.WithFields(logrus.Fields{
		"link_id": link.ID,
		"url":     link.URL,
	})

	if link.CreatedAt == 0 {
		link.CreatedAt = time.Now().UnixMilli()
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		var links []domain.LinkItem
		if _, err := getJSON(txn, keyLinks, &links); err != nil {
			return err
		}
		for _, l := range links {
			if l.ID == link.ID {
				return fmt.Errorf("%w: %s", ErrLinkExists, link.ID)
			}
		}
		links = append([]domain.LinkItem{link}, links...)
		return setJSON(txn, keyLinks, links)
	})
	if err != nil {
		log.WithError(err).Error("Failed to add link")
		return fmt.Errorf("failed to add link: %w", err)
	}

	log.Info("Link added")
	return nil
}

// RunGC periodically reclaims value-log space until ctx is cancelled.
func (r *BadgerRepository) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := r.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				r.log.Info("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
				r.log.Debug("BadgerDB GC: no rewrite needed")
			default:
				r.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			r.log.Info("Stopping BadgerDB GC routine")
			return
		}
	}
}

func readData(txn *badger.Txn) ([]domain.LinkItem, []domain.Category, error) {
	links := []domain.LinkItem{}
	if _, err := getJSON(txn, keyLinks, &links); err != nil {
		return nil, nil, err
	}

	var categories []domain.Category
	found, err := getJSON(txn, keyCategories, &categories)
	if err != nil {
		return nil, nil, err
	}
	if !found || len(categories) == 0 {
		categories = domain.DefaultCategories()
	}
	return links, categories, nil
}

// getJSON decodes the value at key into dst. A missing key is not an error.
func getJSON(txn *badger.Txn, key string, dst any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
	if err != nil {
		return false, fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return txn.SetEntry(badger.NewEntry([]byte(key), b))
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
