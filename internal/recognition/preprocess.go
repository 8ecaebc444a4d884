package recognition

import (
	"image"
	"iter"

	"github.com/disintegration/imaging"
)

// Variant is one preprocessed rendering of the input photo.
type Variant struct {
	Name  string
	Angle int
	Image image.Image
}

// Preprocessor renders a photo into the fixed sequence of variants fed to the
// recognition backends.
type Preprocessor struct {
	// Rotate adds 90, 180 and 270 degree renderings of every variant.
	Rotate bool
	// UpscaleBelow doubles the grayscale rendering when the shorter side is smaller.
	UpscaleBelow int
	// MaxSide bounds the base used by the heavier filters.
	MaxSide int
}

// DefaultPreprocessor matches the sizes the label photos are usually taken at.
func DefaultPreprocessor() Preprocessor {
	return Preprocessor{UpscaleBelow: 1200, MaxSide: 1800}
}

type sources struct {
	// gray is the autocontrasted grayscale rendering, upscaled when small.
	gray *image.NRGBA
	// base is the colour photo bounded to MaxSide.
	base *image.NRGBA
}

type strategy struct {
	name   string
	render func(src sources) *image.NRGBA
}

var strategies = []strategy{
	{"gray", func(src sources) *image.NRGBA { return src.gray }},
	{"gray-sharpened", func(src sources) *image.NRGBA { return imaging.Sharpen(src.gray, 1.0) }},
	{"binary-soft", func(src sources) *image.NRGBA { return threshold(src.gray, 180) }},
	{"binary-hard", func(src sources) *image.NRGBA { return threshold(src.gray, 160) }},
	{"denoised", func(src sources) *image.NRGBA {
		return unsharp(imaging.Blur(src.base, 0.8), 2.0, 1.2)
	}},
	{"adaptive-threshold", func(src sources) *image.NRGBA {
		return adaptiveThreshold(autoContrast(imaging.Grayscale(src.base), 0.01), 6.0, 11)
	}},
	{"contrast-sharpened", func(src sources) *image.NRGBA {
		return unsharp(autoContrast(src.base, 0.02), 1.4, 1.4)
	}},
	{"inverted", func(src sources) *image.NRGBA { return imaging.Invert(imaging.Grayscale(src.base)) }},
}

// Variants returns the deterministic variant sequence for img. The sequence
// is lazy and can be ranged over more than once.
func (p Preprocessor) Variants(img image.Image) iter.Seq[Variant] {
	return func(yield func(Variant) bool) {
		if img == nil {
			return
		}
		src := p.prepare(img)
		for _, s := range strategies {
			out := s.render(src)
			if !yield(Variant{Name: s.name, Image: out}) {
				return
			}
			if !p.Rotate {
				continue
			}
			for _, angle := range []int{90, 180, 270} {
				if !yield(Variant{Name: s.name, Angle: angle, Image: rotate(out, angle)}) {
					return
				}
			}
		}
	}
}

// Count is the number of variants Variants yields.
func (p Preprocessor) Count() int {
	if p.Rotate {
		return len(strategies) * 4
	}
	return len(strategies)
}

func (p Preprocessor) prepare(img image.Image) sources {
	gray := autoContrast(imaging.Grayscale(img), 0)
	b := gray.Bounds()
	if p.UpscaleBelow > 0 && min(b.Dx(), b.Dy()) < p.UpscaleBelow {
		gray = imaging.Resize(gray, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
	}

	var base *image.NRGBA
	if p.MaxSide > 0 {
		base = imaging.Fit(img, p.MaxSide, p.MaxSide, imaging.Lanczos)
	} else {
		base = imaging.Clone(img)
	}
	return sources{gray: gray, base: base}
}
