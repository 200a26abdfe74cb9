package extension

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"cloudnav/internal/dataurl"
)

var (
	ErrNoFavicon         = errors.New("no favicon configured")
	ErrUnsupportedFormat = errors.New("unsupported icon format")
)

// Rasterizer turns an image reference (http(s) or data URL) into a
// size x size PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, src string, size int) ([]byte, error)
}

// ImageRasterizer decodes raster formats natively and scales them.
// Vector images are rejected with ErrUnsupportedFormat.
type ImageRasterizer struct {
	Client   *http.Client
	MaxBytes int64
}

// NewImageRasterizer returns an ImageRasterizer using client, or http.DefaultClient when nil.
func NewImageRasterizer(client *http.Client) *ImageRasterizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &ImageRasterizer{Client: client, MaxBytes: 5 << 20}
}

// Rasterize implements Rasterizer.
func (r *ImageRasterizer) Rasterize(ctx context.Context, src string, size int) ([]byte, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrNoFavicon
	}
	mimeType, data, err := r.load(ctx, src)
	if err != nil {
		return nil, err
	}
	if isSVG(mimeType, data) {
		return nil, fmt.Errorf("%w: svg", ErrUnsupportedFormat)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return encodeSquare(img, size)
}

func (r *ImageRasterizer) load(ctx context.Context, src string) (string, []byte, error) {
	if dataurl.Is(src) {
		return dataurl.Decode(src)
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch icon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("fetch icon: unexpected status %d", resp.StatusCode)
	}

	limit := r.MaxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", nil, fmt.Errorf("read icon: %w", err)
	}
	return resp.Header.Get("Content-Type"), data, nil
}

func isSVG(mimeType string, data []byte) bool {
	if strings.Contains(mimeType, "svg") {
		return true
	}
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// encodeSquare draws img onto a size x size canvas and encodes it as PNG.
func encodeSquare(img image.Image, size int) ([]byte, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizePNG rescales an already rendered PNG to size x size.
func NormalizePNG(data []byte, size int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode rendered icon: %w", err)
	}
	if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
		return data, nil
	}
	return encodeSquare(img, size)
}

// ChainRasterizer tries each rasterizer in turn.
type ChainRasterizer []Rasterizer

// Rasterize implements Rasterizer.
func (c ChainRasterizer) Rasterize(ctx context.Context, src string, size int) ([]byte, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrNoFavicon
	}
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		out, err := r.Rasterize(ctx, src, size)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrUnsupportedFormat
	}
	return nil, errors.Join(errs...)
}
