// Package enrich fills in missing link descriptions with a text-generation
// provider, one link at a time.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"cloudnav/internal/domain"
	"cloudnav/internal/storeclient"
)

var (
	ErrNoAPIKey         = errors.New("no AI API key configured")
	ErrNothingToEnrich  = errors.New("every link already has a description")
	ErrBatchRunning     = errors.New("an enrichment batch is already running")
	ErrEmptyDescription = errors.New("provider returned an empty description")
)

// Describer generates a short description for a page.
type Describer interface {
	Describe(ctx context.Context, title, url string) (string, error)
}

// LinkSink receives the full link list after every successful update.
type LinkSink interface {
	UpdateLinks(ctx context.Context, links []domain.LinkItem) error
}

// Progress is reported after every item, successful or not.
type Progress struct {
	Current int
	Total   int
}

// Plan is the outcome of the precondition check.
type Plan struct {
	Targets []domain.LinkItem
}

// Total is the number of links the batch will process.
func (p Plan) Total() int {
	return len(p.Targets)
}

// Check validates the preconditions without changing anything.
func Check(cfg domain.AIConfig, links []domain.LinkItem) (Plan, error) {
	if !cfg.Configured() {
		return Plan{}, ErrNoAPIKey
	}
	targets := missingDescriptions(links)
	if len(targets) == 0 {
		return Plan{}, ErrNothingToEnrich
	}
	return Plan{Targets: targets}, nil
}

func missingDescriptions(links []domain.LinkItem) []domain.LinkItem {
	var out []domain.LinkItem
	for _, l := range links {
		if !l.HasDescription() {
			out = append(out, l)
		}
	}
	return out
}

// Result summarises a finished run.
type Result struct {
	Links     []domain.LinkItem
	Updated   int
	Failed    int
	Cancelled bool
}

// Batch runs enrichment. Only one run may be active at a time.
type Batch struct {
	describer Describer
	sink      LinkSink
	log       logrus.FieldLogger

	running atomic.Bool
	stop    atomic.Bool
}

// NewBatch creates a Batch.
func NewBatch(d Describer, sink LinkSink, logger logrus.FieldLogger) *Batch {
	return &Batch{
		describer: d,
		sink:      sink,
		log:       logger.WithField("component", "enrich"),
	}
}

// Cancel asks the running batch to stop before its next item. The item in
// flight always completes.
func (b *Batch) Cancel() {
	b.stop.Store(true)
}

// Running reports whether a run is in progress.
func (b *Batch) Running() bool {
	return b.running.Load()
}

// Run processes the links missing a description, in list order. The target
// set is computed once from links. After each success the whole updated list
// is pushed to the sink; a failed item is logged and skipped. A rejected
// credential aborts the batch with storeclient.ErrUnauthorized.
func (b *Batch) Run(ctx context.Context, links []domain.LinkItem, onProgress func(Progress)) (Result, error) {
	if !b.running.CompareAndSwap(false, true) {
		return Result{}, ErrBatchRunning
	}
	defer b.running.Store(false)
	b.stop.Store(false)

	targets := missingDescriptions(links)
	if len(targets) == 0 {
		return Result{Links: domain.CloneLinks(links)}, ErrNothingToEnrich
	}

	current := domain.CloneLinks(links)
	res := Result{}
	total := len(targets)
	b.log.WithField("total", total).Info("Enrichment started")

	for i, target := range targets {
		if b.stop.Load() || ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		log := b.log.WithFields(logrus.Fields{"link_id": target.ID, "url": target.URL})

		desc, err := b.describe(ctx, target)
		if err != nil {
			log.WithError(err).Warn("Description generation failed, skipping link")
			res.Failed++
		} else {
			current = withDescription(current, target.ID, desc)
			if err := b.sink.UpdateLinks(ctx, current); err != nil {
				res.Failed++
				if errors.Is(err, storeclient.ErrUnauthorized) {
					log.WithError(err).Error("Credential rejected, aborting enrichment")
					res.Links = current
					return res, fmt.Errorf("push updated links: %w", err)
				}
				log.WithError(err).Error("Failed to push updated links")
			} else {
				res.Updated++
			}
		}

		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: total})
		}
	}

	res.Links = current
	b.log.WithFields(logrus.Fields{
		"updated":   res.Updated,
		"failed":    res.Failed,
		"cancelled": res.Cancelled,
	}).Info("Enrichment finished")
	return res, nil
}

func (b *Batch) describe(ctx context.Context, l domain.LinkItem) (string, error) {
	desc, err := b.describer.Describe(ctx, l.Title, l.URL)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", l.URL, err)
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", ErrEmptyDescription
	}
	return desc, nil
}

// withDescription returns a copy of links with one description replaced.
func withDescription(links []domain.LinkItem, id, desc string) []domain.LinkItem {
	out := domain.CloneLinks(links)
	for i := range out {
		if out[i].ID == id {
			out[i].Description = desc
			break
		}
	}
	return out
}
