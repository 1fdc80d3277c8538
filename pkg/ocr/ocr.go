// Package ocr recognizes text lines in camera frames and photos with
// Tesseract, ready for IBAN extraction.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultWhitelist limits Tesseract to what an IBAN line can contain.
const DefaultWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz ./-:"

// Recognizer runs Tesseract on frames. A new client is created per call, so a
// Recognizer can be shared between goroutines.
type Recognizer struct {
	languages     []string
	whitelist     string
	psm           gosseract.PageSegMode
	roi           bool
	clientFactory func() *gosseract.Client
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLanguages sets the Tesseract trained data to load (e.g. "eng", "tur").
func WithLanguages(langs ...string) Option {
	return func(r *Recognizer) {
		if len(langs) > 0 {
			r.languages = append([]string(nil), langs...)
		}
	}
}

// WithWhitelist overrides the character whitelist; "" disables it.
func WithWhitelist(chars string) Option {
	return func(r *Recognizer) { r.whitelist = chars }
}

// WithPageSegMode sets the Tesseract page segmentation mode.
func WithPageSegMode(mode gosseract.PageSegMode) Option {
	return func(r *Recognizer) { r.psm = mode }
}

// WithRegionOfInterest toggles cropping frames to the central scan band.
func WithRegionOfInterest(enabled bool) Option {
	return func(r *Recognizer) { r.roi = enabled }
}

// NewRecognizer returns a recognizer that crops frames to the region of
// interest and reads them as a single text block.
func NewRecognizer(opts ...Option) *Recognizer {
	r := &Recognizer{
		languages:     []string{"eng"},
		whitelist:     DefaultWhitelist,
		psm:           gosseract.PSM_SINGLE_BLOCK,
		roi:           true,
		clientFactory: gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare returns the image handed to Tesseract for a frame: the region of
// interest (when enabled) after preprocessing.
func (r *Recognizer) Prepare(img image.Image) image.Image {
	if r.roi {
		img = imaging.Crop(img, RegionOfInterest(img.Bounds()))
	}
	return preprocess(img)
}

// RecognizeLines returns the non-empty text lines found in one frame.
func (r *Recognizer) RecognizeLines(ctx context.Context, img image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.recognize(ctx, r.Prepare(img))
}

func (r *Recognizer) recognize(ctx context.Context, img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	c := r.clientFactory()
	defer c.Close()
	if err := c.SetLanguage(r.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if r.whitelist != "" {
		if err := c.SetWhitelist(r.whitelist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := c.SetPageSegMode(r.psm); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Line boxes keep one OCR line per candidate; plain text is the fallback
	// when the layout pass yields nothing.
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE); err == nil && len(boxes) > 0 {
		lines := make([]string, 0, len(boxes))
		for _, b := range boxes {
			if l := normalizeLine(b.Word); l != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	return splitLines(text), nil
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = normalizeLine(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
