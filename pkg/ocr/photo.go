package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/disintegration/imaging"

	"ibanscan/pkg/iban"
)

// Threshold parameters for the photo passes.
const (
	binarizeLevel  = 160
	adaptiveWindow = 15
	adaptiveBias   = 7
)

type pass struct {
	name string
	img  image.Image
}

// photoPasses builds the variants tried on a still photo, cheapest first.
func photoPasses(img image.Image) []pass {
	gray := preprocess(img)
	return []pass{
		{"original", img},
		{"preprocessed", gray},
		{"binarized", binarize(gray, binarizeLevel)},
		{"adaptive", adaptiveThreshold(gray, adaptiveWindow, adaptiveBias)},
		{"inverted", imaging.Invert(gray)},
	}
}

// ReadIban runs several OCR passes over a still image and returns the first
// line that yields a canonical IBAN. The region of interest is not applied
// to photos.
func (r *Recognizer) ReadIban(ctx context.Context, img image.Image) (iban.Match, string, error) {
	var seen []string
	for _, p := range photoPasses(img) {
		if err := ctx.Err(); err != nil {
			return iban.Match{}, "", err
		}
		lines, err := r.recognize(ctx, p.img)
		if err != nil {
			return iban.Match{}, "", fmt.Errorf("%s pass: %w", p.name, err)
		}
		for _, l := range lines {
			if !iban.IsValidPattern(l) {
				continue
			}
			if m, ok := iban.Extract(l); ok {
				log.Printf("OCR iban pass=%s line=%q", p.name, snippet(l, 60))
				return m, l, nil
			}
		}
		seen = append(seen, lines...)
	}
	log.Printf("OCR no iban lines=%d text=%q", len(seen), snippet(strings.Join(seen, " | "), 120))
	return iban.Match{}, "", ErrNoIban
}

// ReadIbanFromImage opens the photo at path and reads an IBAN from it with
// the default recognizer.
func ReadIbanFromImage(ctx context.Context, path string, opts ...Option) (iban.Match, string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return iban.Match{}, "", fmt.Errorf("open image: %w", err)
	}
	return NewRecognizer(opts...).ReadIban(ctx, img)
}
