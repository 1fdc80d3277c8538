package ocr

import (
	"image"
	"math"
)

// Scan band proportions, normalized to the frame.
const (
	roiWidthRatio       = 0.6
	roiHeightRatio      = 0.15
	roiMaxPortraitWidth = 0.8
)

// RegionOfInterest returns the central horizontal band where the user is
// expected to hold the IBAN line. Portrait frames (taller than wide) get a
// wider, flatter band scaled by the frame aspect ratio.
func RegionOfInterest(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w <= 0 || h <= 0 {
		return bounds
	}
	nw, nh := roiWidthRatio, roiHeightRatio
	if h > w {
		aspect := h / w
		nw = math.Min(roiWidthRatio*aspect, roiMaxPortraitWidth)
		nh = roiHeightRatio / aspect
	}
	x0 := bounds.Min.X + int(math.Round((1-nw)/2*w))
	y0 := bounds.Min.Y + int(math.Round((1-nh)/2*h))
	return image.Rect(x0, y0, x0+int(math.Round(nw*w)), y0+int(math.Round(nh*h))).Intersect(bounds)
}
