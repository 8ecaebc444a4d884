package recognition

import (
	"image"

	"github.com/disintegration/imaging"
)

// Pixel filters missing from imaging. All of them take and return NRGBA so
// they compose with the imaging helpers without extra conversions.

func rotate(img *image.NRGBA, angle int) *image.NRGBA {
	switch angle {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

func luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

// autoContrast stretches the luminance histogram to the full range after
// discarding cutoff (0..0.5) of the pixels at each end.
func autoContrast(img *image.NRGBA, cutoff float64) *image.NRGBA {
	var hist [256]int
	pix := img.Pix
	total := 0
	for i := 0; i+3 < len(pix); i += 4 {
		hist[luma(pix[i], pix[i+1], pix[i+2])]++
		total++
	}
	if total == 0 {
		return img
	}

	skip := int(float64(total) * cutoff)
	lo, hi := 0, 255
	for acc := 0; lo < 255; lo++ {
		acc += hist[lo]
		if acc > skip {
			break
		}
	}
	for acc := 0; hi > 0; hi-- {
		acc += hist[hi]
		if acc > skip {
			break
		}
	}
	if hi <= lo {
		return img
	}

	var lut [256]uint8
	scale := 255.0 / float64(hi-lo)
	for v := 0; v < 256; v++ {
		switch {
		case v <= lo:
			lut[v] = 0
		case v >= hi:
			lut[v] = 255
		default:
			lut[v] = uint8(float64(v-lo)*scale + 0.5)
		}
	}

	out := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(pix); i += 4 {
		out.Pix[i] = lut[pix[i]]
		out.Pix[i+1] = lut[pix[i+1]]
		out.Pix[i+2] = lut[pix[i+2]]
		out.Pix[i+3] = pix[i+3]
	}
	return out
}

// threshold maps pixels brighter than t to white and the rest to black.
func threshold(img *image.NRGBA, t uint8) *image.NRGBA {
	out := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		v := uint8(0)
		if luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) > t {
			v = 255
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
	}
	return out
}

// adaptiveThreshold binarizes against the gaussian-weighted local mean minus c.
func adaptiveThreshold(img *image.NRGBA, sigma float64, c int) *image.NRGBA {
	mean := imaging.Blur(img, sigma)
	out := image.NewNRGBA(img.Rect)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		px := int(luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		local := int(luma(mean.Pix[i], mean.Pix[i+1], mean.Pix[i+2]))
		v := uint8(0)
		if px > local-c {
			v = 255
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
	}
	return out
}

// unsharp adds amount times the difference between img and its blur.
func unsharp(img *image.NRGBA, sigma, amount float64) *image.NRGBA {
	blurred := imaging.Blur(img, sigma)
	out := image.NewNRGBA(img.Rect)
	for i := 0; i < len(img.Pix); i++ {
		if i%4 == 3 {
			out.Pix[i] = img.Pix[i]
			continue
		}
		v := float64(img.Pix[i]) + amount*(float64(img.Pix[i])-float64(blurred.Pix[i]))
		out.Pix[i] = clamp8(v)
	}
	return out
}

func clamp8(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
