package recognition

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// BarcodeBackend decodes the barcodes printed next to codes on carrier labels.
// The decoded payloads are returned as text lines for the normal extraction.
type BarcodeBackend struct {
	readers func() []gozxing.Reader
}

func NewBarcodeBackend() *BarcodeBackend {
	return &BarcodeBackend{readers: defaultReaders}
}

func defaultReaders() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewEAN13Reader(),
		oned.NewITFReader(),
		qrcode.NewQRCodeReader(),
		datamatrix.NewDataMatrixReader(),
	}
}

func (b *BarcodeBackend) Name() string { return "barcode" }

func (b *BarcodeBackend) Available() bool { return true }

func (b *BarcodeBackend) Modes() []Mode { return []Mode{ModeDefault} }

// Recognize returns "" with no error when no barcode is found.
func (b *BarcodeBackend) Recognize(ctx context.Context, img image.Image, _ Mode) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	var lines []string
	for _, reader := range b.readers() {
		if err := ctx.Err(); err != nil {
			return strings.Join(lines, "\n"), err
		}
		result, err := reader.Decode(bmp, hints)
		if err != nil || result == nil {
			continue
		}
		if text := strings.TrimSpace(result.GetText()); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
