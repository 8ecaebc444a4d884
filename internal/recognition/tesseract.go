package recognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

var tesseractModes = map[Mode]gosseract.PageSegMode{
	ModeBlock: gosseract.PSM_SINGLE_BLOCK,
	ModeLine:  gosseract.PSM_SINGLE_LINE,
}

// TesseractBackend runs the local Tesseract engine through gosseract.
type TesseractBackend struct {
	language      string
	clientFactory func() *gosseract.Client
}

func NewTesseractBackend(language string) *TesseractBackend {
	if language == "" {
		language = "eng"
	}
	return &TesseractBackend{language: language, clientFactory: gosseract.NewClient}
}

func (t *TesseractBackend) Name() string { return "tesseract" }

// Available is always true; gosseract links libtesseract at build time.
func (t *TesseractBackend) Available() bool { return true }

func (t *TesseractBackend) Modes() []Mode { return []Mode{ModeBlock, ModeLine} }

func (t *TesseractBackend) Recognize(ctx context.Context, img image.Image, mode Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if psm, ok := tesseractModes[mode]; ok {
		if err := c.SetPageSegMode(psm); err != nil {
			return "", fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
