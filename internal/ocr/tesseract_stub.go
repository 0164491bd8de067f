//go:build !ocr

package ocr

import (
	"context"

	"github.com/metcalfc/pagesync/internal/errors"
)

// Tesseract is the stub engine used without the "ocr" build tag.
type Tesseract struct{}

// New always fails with ErrOCRNotEnabled.
func New(Options) (*Tesseract, error) {
	return nil, errors.NewOCRNotEnabledError(ErrOCRNotEnabled)
}

func (t *Tesseract) Name() string { return "tesseract" }

// Close is a no-op. It is safe to call on a nil engine.
func (t *Tesseract) Close() error { return nil }

func (t *Tesseract) Recognize(context.Context, []byte) ([]string, error) {
	return nil, errors.NewOCRNotEnabledError(ErrOCRNotEnabled)
}
