//go:build ocr

package ocr

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/metcalfc/pagesync/internal/logging"
)

// Tesseract recognizes images with libtesseract. A gosseract client is not
// safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	log    *logging.Logger
}

// New creates a Tesseract engine. Close it when done.
func New(opts Options) (*Tesseract, error) {
	def := DefaultOptions()
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.PageSegMode <= 0 {
		opts.PageSegMode = def.PageSegMode
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(strings.Split(opts.Language, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language %q: %w", opts.Language, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode %d: %w", opts.PageSegMode, err)
	}
	return &Tesseract{client: client, log: logging.NewLogger("ocr")}, nil
}

// Name identifies the engine in errors.
func (t *Tesseract) Name() string { return "tesseract" }

// Close releases the engine.
func (t *Tesseract) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}

// Recognize returns text lines ordered top to bottom, then left to right.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		slices.SortStableFunc(boxes, func(a, b gosseract.BoundingBox) int {
			if r := cmp.Compare(a.Box.Min.Y, b.Box.Min.Y); r != 0 {
				return r
			}
			return cmp.Compare(a.Box.Min.X, b.Box.Min.X)
		})
		lines := make([]string, 0, len(boxes))
		for _, b := range boxes {
			if line := strings.TrimSpace(b.Word); line != "" {
				lines = append(lines, line)
			}
		}
		t.log.Debug("recognized", "lines", len(lines), "mode", "textline")
		return lines, nil
	}
	if err != nil {
		t.log.Warn("text line boxes unavailable, falling back to plain text", "error", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}
	lines := SplitLines(text)
	t.log.Debug("recognized", "lines", len(lines), "mode", "text")
	return lines, nil
}
