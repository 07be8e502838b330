package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/ports"
)

const maxDownloadBytes = 20 << 20

// Loader downloads cover images and re-encodes them as bounded JPEGs.
type Loader struct {
	maxWidth   int
	maxHeight  int
	quality    int
	httpClient *http.Client
	now        func() time.Time
}

var _ ports.ImageLoader = (*Loader)(nil)

// NewLoader applies the configured bounds.
func NewLoader(cfg config.ImageConfig) *Loader {
	return &Loader{
		maxWidth:   cfg.MaxWidth,
		maxHeight:  cfg.MaxHeight,
		quality:    cfg.JPEGQuality,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Load fetches url and returns JPEG bytes with a generated file name.
func (l *Loader) Load(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	data, err := Optimize(raw, l.maxWidth, l.maxHeight, l.quality)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("article_%d.jpg", l.now().Unix()), nil
}

// Optimize fits the image within maxWidth x maxHeight, flattens transparency
// onto white and encodes it as JPEG.
func Optimize(raw []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// fit scales w x h down, keeping the aspect ratio, never up.
func fit(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*ratio)))
	nh := max(1, int(math.Round(float64(h)*ratio)))
	return nw, nh
}
