package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewStore(dir, "/static/uploads/")
	require.NoError(t, err)

	data := pngBytes(t, 12, 8)
	saved, err := s.Save("Label.PNG", bytes.NewReader(data))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.URL, "/static/uploads/"))
	assert.True(t, strings.HasSuffix(saved.URL, ".png"))
	assert.Equal(t, dir, filepath.Dir(saved.Path))

	got, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	other, err := s.Save("Label.PNG", bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEqual(t, saved.Path, other.Path, "names never collide")
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", extension("photo"))
	assert.Equal(t, ".jpeg", extension("a.JPEG"))
	assert.Equal(t, ".webp", extension("dir/a.webp"))
	assert.Equal(t, ".jpg", extension("weird.extension"))
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(bytes.NewReader(pngBytes(t, 20, 10)))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	_, err = DecodeImage(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestOpenImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 5, 7), 0o644))

	img, err := OpenImage(path)
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dy())
}
