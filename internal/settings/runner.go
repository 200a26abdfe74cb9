package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
)

// ErrCommitFailed wraps failures of the explicit save path.
var ErrCommitFailed = errors.New("saving settings failed")

const persistTimeout = 15 * time.Second

// ConfigSaver persists a config document remotely; storeclient.Client implements it.
type ConfigSaver interface {
	SaveConfig(ctx context.Context, kind string, payload any) error
}

// AIStore keeps the AI config on the client only.
type AIStore interface {
	Save(cfg domain.AIConfig) error
}

// Runner performs the effects a Session emits.
type Runner struct {
	store   ConfigSaver
	ai      AIStore
	log     logrus.FieldLogger
	timeout time.Duration
	pending sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(store ConfigSaver, ai AIStore, logger logrus.FieldLogger) *Runner {
	return &Runner{
		store:   store,
		ai:      ai,
		log:     logger.WithField("component", "settings_runner"),
		timeout: persistTimeout,
	}
}

// Run executes effects in order. It reports whether a Close effect was seen
// and returns the commit error, if any. PersistWebsite effects are detached
// and never produce an error here.
func (r *Runner) Run(ctx context.Context, effects []Effect) (closed bool, err error) {
	for _, e := range effects {
		switch e := e.(type) {
		case PersistWebsite:
			r.persistDetached(ctx, e.Settings)
		case CommitConfigs:
			if cerr := r.commit(ctx, e); cerr != nil {
				err = cerr
			}
		case Close:
			closed = true
		default:
			r.log.WithField("effect", fmt.Sprintf("%T", e)).Warn("Ignoring unknown settings effect")
		}
	}
	return closed, err
}

// Wait blocks until every detached persist has finished.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// persistDetached saves settings once in the background. It outlives ctx's
// cancellation but not the timeout, and is not retried.
func (r *Runner) persistDetached(ctx context.Context, site domain.SiteSettings) {
	detached := context.WithoutCancel(ctx)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		pctx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		log := r.log.WithField("password_expiry_days", site.ExpiryDays())
		if err := r.store.SaveConfig(pctx, domain.ConfigKindWebsite, site); err != nil {
			log.WithError(err).Warn("Immediate website config save failed")
			return
		}
		log.Debug("Website config saved immediately")
	}()
}

// commit always attempts both saves.
func (r *Runner) commit(ctx context.Context, c CommitConfigs) error {
	var errs []error
	if err := r.ai.Save(c.AI); err != nil {
		errs = append(errs, fmt.Errorf("ai config: %w", err))
	}
	if err := r.store.SaveConfig(ctx, domain.ConfigKindWebsite, c.Site); err != nil {
		errs = append(errs, fmt.Errorf("website config: %w", err))
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		r.log.WithError(err).Error("Settings commit failed")
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	r.log.Info("Settings committed")
	return nil
}
