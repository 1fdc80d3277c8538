package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// minTextHeight is the height small crops are upscaled to before OCR.
const minTextHeight = 200

// preprocess converts to grayscale, boosts contrast, sharpens and upscales
// thin bands.
func preprocess(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minTextHeight {
		gray = imaging.Resize(gray, 0, minTextHeight, imaging.Lanczos)
	}
	return gray
}

// luma returns the gray level of pixel i of a grayscale NRGBA buffer.
func luma(img *image.NRGBA, x, y int) int {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+3 : i+3]
	return (int(p[0]) + int(p[1]) + int(p[2])) / 3
}

func setGray(img *image.NRGBA, x, y int, v uint8) {
	i := img.PixOffset(x, y)
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
}

// binarize applies a global threshold: pixels at or below threshold turn black.
func binarize(img *image.NRGBA, threshold int) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8 = 255
			if luma(img, x, y) <= threshold {
				v = 0
			}
			setGray(out, x, y, v)
		}
	}
	return out
}

// adaptiveThreshold compares each pixel with the mean of its window (minus
// bias) using an integral image; it copes with uneven lighting on stickers.
func adaptiveThreshold(img *image.NRGBA, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	// sums has a zero row and column so window lookups need no edge cases.
	sums := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += luma(img, b.Min.X+x, b.Min.Y+y)
			sums[(y+1)*(w+1)+x+1] = sums[y*(w+1)+x+1] + row
		}
	}
	half := window / 2
	out := image.NewNRGBA(b)
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half+1, w)
			sum := sums[y1*(w+1)+x1] - sums[y0*(w+1)+x1] - sums[y1*(w+1)+x0] + sums[y0*(w+1)+x0]
			mean := sum / ((x1 - x0) * (y1 - y0))
			var v uint8 = 255
			if luma(img, b.Min.X+x, b.Min.Y+y) < mean-bias {
				v = 0
			}
			setGray(out, b.Min.X+x, b.Min.Y+y, v)
		}
	}
	return out
}
