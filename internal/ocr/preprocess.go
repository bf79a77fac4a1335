package ocr

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	xdraw "golang.org/x/image/draw"
)

// Adaptive threshold parameters tuned for scanned exam pages.
const (
	thresholdBlock = 35
	thresholdC     = 11
)

// PreprocessOptions controls Preprocess.
type PreprocessOptions struct {
	MagRatio float64 // Scale factor applied before binarization; 1 keeps the size
}

// Preprocess converts img to grayscale, optionally magnifies it, binarizes it
// with an adaptive mean threshold and removes speckle noise with a 3x3 median.
func Preprocess(img image.Image, opts PreprocessOptions) *image.Gray {
	gray := asGray(effect.Grayscale(img))
	if opts.MagRatio > 0 && opts.MagRatio != 1.0 {
		gray = magnify(gray, opts.MagRatio)
	}
	bin := adaptiveThreshold(gray, thresholdBlock, thresholdC)
	return asGray(effect.Median(bin, 1))
}

// asGray returns img as a zero-origin *image.Gray, copying only when needed.
func asGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(gray, gray.Bounds(), img, b.Min, xdraw.Src)
	return gray
}

func magnify(src *image.Gray, ratio float64) *image.Gray {
	b := src.Bounds()
	w := int(float64(b.Dx())*ratio + 0.5)
	h := int(float64(b.Dy())*ratio + 0.5)
	if w < 1 || h < 1 {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// adaptiveThreshold sets a pixel white when it is brighter than the mean of
// its block x block neighbourhood minus c, black otherwise.
func adaptiveThreshold(src *image.Gray, block, c int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	// Summed-area table with a zero row and column.
	stride := w + 1
	integral := make([]uint64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row uint64
		for x := 0; x < w; x++ {
			row += uint64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	half := block / 2
	for y := 0; y < h; y++ {
		y0, y1 := clamp(y-half, 0, h-1), clamp(y+half, 0, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := clamp(x-half, 0, w-1), clamp(x+half, 0, w-1)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			area := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			mean := int(sum / area)
			v := color.Gray{Y: 0}
			if int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) > mean-c {
				v.Y = 255
			}
			dst.SetGray(x, y, v)
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
