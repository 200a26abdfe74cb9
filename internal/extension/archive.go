package extension

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
)

// iconMissingText is placed in the archive when the icon cannot be produced.
const iconMissingText = "Icon generation failed due to CORS. Please save the icon manually."

// ErrIconUnavailable wraps every icon failure surfaced to a single-icon download.
var ErrIconUnavailable = errors.New("icon generation failed (possibly a cross-origin restriction); right-click the preview image and choose \"Save image as...\"")

// Packager assembles bundles into a zip archive.
type Packager struct {
	rasterizer Rasterizer
	log        logrus.FieldLogger
}

// NewPackager creates a Packager. rasterizer may be nil, in which case the
// archive never contains an icon.
func NewPackager(rasterizer Rasterizer, logger logrus.FieldLogger) *Packager {
	return &Packager{
		rasterizer: rasterizer,
		log:        logger.WithField("component", "extension_packager"),
	}
}

// Archive is a packaged bundle.
type Archive struct {
	Data    []byte
	Entries []string
	HasIcon bool
}

// Icon rasterises favicon to a 128x128 PNG for direct download.
func (p *Packager) Icon(ctx context.Context, favicon string) ([]byte, error) {
	if favicon == "" {
		return nil, fmt.Errorf("%w: %w", ErrIconUnavailable, ErrNoFavicon)
	}
	if p.rasterizer == nil {
		return nil, fmt.Errorf("%w: %w", ErrIconUnavailable, ErrUnsupportedFormat)
	}
	icon, err := p.rasterizer.Rasterize(ctx, favicon, IconSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIconUnavailable, err)
	}
	return icon, nil
}

// Package zips the bundle together with the icon. A failed icon does not
// fail the archive; a placeholder text file takes its place.
func (p *Packager) Package(ctx context.Context, bundle Bundle, favicon string) (Archive, error) {
	icon, err := p.Icon(ctx, favicon)
	if err != nil {
		p.log.WithError(err).Warn("Could not generate icon for archive")
		icon = nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	archive := Archive{}

	for _, f := range bundle.Files {
		if err := writeEntry(zw, f.Name, f.Content, zip.Deflate); err != nil {
			return Archive{}, err
		}
		archive.Entries = append(archive.Entries, f.Name)
	}

	if icon != nil {
		if err := writeEntry(zw, IconFile, icon, zip.Store); err != nil {
			return Archive{}, err
		}
		archive.Entries = append(archive.Entries, IconFile)
		archive.HasIcon = true
	} else {
		if err := writeEntry(zw, IconMissingFile, []byte(iconMissingText), zip.Deflate); err != nil {
			return Archive{}, err
		}
		archive.Entries = append(archive.Entries, IconMissingFile)
	}

	if err := zw.Close(); err != nil {
		return Archive{}, fmt.Errorf("finalize archive: %w", err)
	}
	archive.Data = buf.Bytes()

	p.log.WithFields(logrus.Fields{
		"entries":  len(archive.Entries),
		"has_icon": archive.HasIcon,
		"bytes":    len(archive.Data),
	}).Info("Extension archive packaged")
	return archive, nil
}

func writeEntry(zw *zip.Writer, name string, content []byte, method uint16) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
