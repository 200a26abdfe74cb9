package scraper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"cloudnav/internal/extension"
)

// ErrNoBrowser is returned when no Chromium executable can be located.
var ErrNoBrowser = errors.New("rod browser dependency not found")

const pageTimeout = 30 * time.Second

// RodScraper implements Scraper and extension.Rasterizer using rod.
type RodScraper struct {
	log logrus.FieldLogger
}

// NewRodScraper creates a new scraper service instance.
func NewRodScraper(logger logrus.FieldLogger) *RodScraper {
	return &RodScraper{
		log: logger.WithField("component", "scraper"),
	}
}

// withPage launches a browser, opens target and hands the loaded page to fn.
// Browser and page are closed on return; a close error only surfaces when fn succeeded.
func (s *RodScraper) withPage(ctx context.Context, log logrus.FieldLogger, target string, fn func(*rod.Page) error) (err error) {
	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return ErrNoBrowser
	}
	u, err := launcher.New().Bin(path).Launch()
	if err != nil {
		log.WithError(err).Error("Failed to launch rod browser")
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
			if err == nil {
				err = fmt.Errorf("error closing browser: %w", closeErr)
			}
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		log.WithError(err).Error("Failed to create rod page")
		return fmt.Errorf("failed to create page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.WithError(pageCtx.Err()).Warn("Page load timed out")
			return fmt.Errorf("page load timed out for %s: %w", target, pageCtx.Err())
		}
		log.WithError(err).Error("Failed to wait for page load")
		return fmt.Errorf("failed waiting for page load: %w", err)
	}
	return fn(page)
}

// ScrapeMetadata fetches the title and description using rod.
func (s *RodScraper) ScrapeMetadata(ctx context.Context, url string) (title string, description string, err error) {
	log := s.log.WithField("url", url)
	log.Info("Attempting to scrape metadata")

	err = s.withPage(ctx, log, url, func(page *rod.Page) error {
		title = pageTitle(page, log)
		description = metaDescription(page, log)
		return nil
	})
	if err != nil {
		return "", "", err
	}
	log.WithField("title", title).Info("Metadata scraping completed")
	return title, description, nil
}

func pageTitle(page *rod.Page, log logrus.FieldLogger) string {
	el, err := page.Element("title")
	if err != nil {
		log.WithError(err).Warn("Could not find title element")
		return ""
	}
	text, err := el.Text()
	if err != nil {
		log.WithError(err).Warn("Failed to get text from title element")
		return ""
	}
	return strings.TrimSpace(text)
}

var descSelectors = []string{
	`meta[name="description"]`,
	`meta[property="og:description"]`,
}

func metaDescription(page *rod.Page, log logrus.FieldLogger) string {
	for _, selector := range descSelectors {
		has, el, err := page.Has(selector)
		if err != nil {
			log.WithError(err).WithField("selector", selector).Warn("Error searching for meta description tag")
			continue
		}
		if !has {
			continue
		}
		content, err := el.Attribute("content")
		if err != nil || content == nil {
			continue
		}
		if d := strings.TrimSpace(*content); d != "" {
			return d
		}
	}
	log.Debug("Could not find description meta tag")
	return ""
}

// Rasterize renders src (any image the browser can display, SVG included)
// into a size x size PNG.
func (s *RodScraper) Rasterize(ctx context.Context, src string, size int) ([]byte, error) {
	log := s.log.WithField("icon_source", truncate(src, 64))
	if strings.TrimSpace(src) == "" {
		return nil, extension.ErrNoFavicon
	}

	var shot []byte
	err := s.withPage(ctx, log, "about:blank", func(page *rod.Page) error {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: size, Height: size, DeviceScaleFactor: 1}); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		doc := fmt.Sprintf(`<html><body style="margin:0;background:transparent"><img id="icon" src="%s" width="%d" height="%d"></body></html>`,
			html.EscapeString(src), size, size)
		if err := page.SetDocumentContent(doc); err != nil {
			return fmt.Errorf("set document: %w", err)
		}
		img, err := page.Element("#icon")
		if err != nil {
			return fmt.Errorf("find icon element: %w", err)
		}
		if err := img.WaitLoad(); err != nil {
			return fmt.Errorf("load icon: %w", err)
		}
		shot, err = img.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return fmt.Errorf("screenshot icon: %w", err)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Browser icon rendering failed")
		return nil, err
	}
	return extension.NormalizePNG(shot, size)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
