package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"order-tracking-service/internal/config"
)

var ErrBackendUnavailable = errors.New("recognition backend unavailable")

// Mode is a layout hint passed to a backend, e.g. single block or single line.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeBlock   Mode = "block"
	ModeLine    Mode = "line"
)

// Backend turns an image into raw text.
//
// Errors from Recognize are recoverable: callers log them and treat the
// result as empty text.
type Backend interface {
	Name() string
	// Available is false when the backend lacks credentials, models or libraries.
	Available() bool
	// Modes lists the layout hints worth trying, in order.
	Modes() []Mode
	Recognize(ctx context.Context, img image.Image, mode Mode) (string, error)
}

// BuildBackends constructs the enabled backends in preference order: barcode
// decoding, the local engine, the local neural model, then the cloud service.
// Backends that cannot work are still returned and report unavailable.
func BuildBackends(ctx context.Context, cfg config.RecognitionConfig) []Backend {
	var backends []Backend
	if cfg.BarcodeEnabled {
		backends = append(backends, NewBarcodeBackend())
	}
	if cfg.TesseractEnabled {
		backends = append(backends, NewTesseractBackend(cfg.TesseractLanguage))
	}
	if cfg.ONNXModelPath != "" {
		backends = append(backends, NewONNXBackend(ONNXConfig{
			ModelPath:   cfg.ONNXModelPath,
			DictPath:    cfg.ONNXDictPath,
			LibraryPath: cfg.ONNXLibraryPath,
		}))
	}
	if cfg.GoogleCredentials != "" {
		backends = append(backends, NewVisionBackend(ctx, cfg.GoogleCredentials))
	}

	for _, b := range backends {
		slog.Info("recognition backend configured", "backend", b.Name(), "available", b.Available())
	}
	return backends
}

type callResult struct {
	text string
	err  error
}

// recognizeWithTimeout bounds a single backend call. A call that overruns is
// abandoned; its goroutine finishes in the background.
func recognizeWithTimeout(ctx context.Context, b Backend, img image.Image, mode Mode) (string, error) {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("%s panicked: %v", b.Name(), r)}
			}
		}()
		text, err := b.Recognize(ctx, img, mode)
		done <- callResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
