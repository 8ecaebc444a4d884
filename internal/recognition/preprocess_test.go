package recognition

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labelImage draws a dark bar on a light background.
func labelImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 230, G: 230, B: 225, A: 255}
			if y > h/3 && y < 2*h/3 && x > w/8 && x < 7*w/8 {
				c = color.NRGBA{R: 20, G: 20, B: 30, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func collect(p Preprocessor, img image.Image) []Variant {
	var out []Variant
	for v := range p.Variants(img) {
		out = append(out, v)
	}
	return out
}

func TestVariants_Sequence(t *testing.T) {
	p := DefaultPreprocessor()
	img := labelImage(60, 30)

	got := collect(p, img)
	require.Len(t, got, p.Count())
	assert.Equal(t, len(strategies), len(got))

	for i, v := range got {
		assert.Equal(t, strategies[i].name, v.Name)
		assert.Zero(t, v.Angle)
		assert.NotNil(t, v.Image)
	}

	// Small inputs are doubled for the grayscale renderings.
	assert.Equal(t, image.Rect(0, 0, 120, 60), got[0].Image.Bounds())
}

func TestVariants_Restartable(t *testing.T) {
	p := DefaultPreprocessor()
	img := labelImage(40, 20)

	first := collect(p, img)
	second := collect(p, img)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Image, second[i].Image)
	}
}

func TestVariants_Rotations(t *testing.T) {
	p := DefaultPreprocessor()
	p.Rotate = true
	img := labelImage(40, 20)

	got := collect(p, img)
	require.Len(t, got, len(strategies)*4)
	assert.Equal(t, []int{0, 90, 180, 270}, []int{got[0].Angle, got[1].Angle, got[2].Angle, got[3].Angle})

	b0, b90 := got[0].Image.Bounds(), got[1].Image.Bounds()
	assert.Equal(t, b0.Dx(), b90.Dy())
	assert.Equal(t, b0.Dy(), b90.Dx())
}

func TestVariants_EarlyStopAndNil(t *testing.T) {
	p := DefaultPreprocessor()
	n := 0
	for range p.Variants(labelImage(20, 20)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	assert.Empty(t, collect(p, nil))
}

func TestThresholdIsBinary(t *testing.T) {
	out := threshold(labelImage(10, 10), 128)
	for i := 0; i < len(out.Pix); i += 4 {
		assert.Contains(t, []uint8{0, 255}, out.Pix[i])
	}
}

func TestAutoContrastStretches(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 150, G: 150, B: 150, A: 255})

	out := autoContrast(img, 0)
	assert.Equal(t, uint8(0), out.Pix[0])
	assert.Equal(t, uint8(255), out.Pix[4])
}
