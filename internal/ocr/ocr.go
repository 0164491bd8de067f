// Package ocr turns screenshots of a reading device into text lines.
//
// The Tesseract engine is only compiled in with the "ocr" build tag:
//
//	go build -tags ocr
//
// It needs libtesseract and its language data installed (apt-get install
// libtesseract-dev tesseract-ocr-eng, or brew install tesseract). Without the
// tag New returns ErrOCRNotEnabled.
package ocr

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/metcalfc/pagesync/internal/errors"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = stderrors.New("OCR support not enabled; rebuild with -tags ocr")

// Recognizer extracts text lines, top to bottom, from an encoded image
// (PNG, JPEG, TIFF). Implementations must be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) ([]string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) ([]string, error) {
	return f(ctx, image)
}

// Options configures the Tesseract engine.
type Options struct {
	// Language is a "+" separated list of traineddata names, e.g. "eng+deu".
	Language string
	// PageSegMode is a Tesseract page segmentation mode (3 = fully automatic,
	// 6 = single uniform block of text).
	PageSegMode int
}

// DefaultOptions returns English with automatic page segmentation.
func DefaultOptions() Options {
	return Options{Language: "eng", PageSegMode: 3}
}

// RecognizeFile reads the image at path and recognizes it. Read failures are
// reported as IMAGE_UNREADABLE, engine failures as OCR_FAILED.
func RecognizeFile(ctx context.Context, r Recognizer, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewImageUnreadableError(path, err)
	}
	if len(data) == 0 {
		return nil, errors.NewImageUnreadableError(path, stderrors.New("empty file"))
	}

	lines, err := r.Recognize(ctx, data)
	if err != nil {
		var re *errors.ResolveError
		if stderrors.As(err, &re) {
			return nil, err
		}
		return nil, errors.NewOCRFailedError(engineName(r), err)
	}
	return lines, nil
}

func engineName(r Recognizer) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "ocr"
}

// SplitLines splits recognized text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	var lines []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
