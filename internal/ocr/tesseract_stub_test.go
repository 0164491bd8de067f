//go:build !ocr

package ocr

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/metcalfc/pagesync/internal/errors"
)

func TestStubNotEnabled(t *testing.T) {
	eng, err := New(DefaultOptions())
	if eng != nil {
		t.Error("expected nil engine")
	}
	if !stderrors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("err = %v, want ErrOCRNotEnabled", err)
	}
	if errors.CodeOf(err) != errors.ErrorOCRNotEnabled {
		t.Errorf("code = %q", errors.CodeOf(err))
	}

	var nilEngine *Tesseract
	if err := nilEngine.Close(); err != nil {
		t.Errorf("Close on nil engine: %v", err)
	}
	if _, err := nilEngine.Recognize(context.Background(), []byte("x")); !stderrors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Recognize err = %v", err)
	}
}
