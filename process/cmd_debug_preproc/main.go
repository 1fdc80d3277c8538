package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"ibanscan/pkg/iban"
	"ibanscan/pkg/ocr"

	"github.com/disintegration/imaging"
)

// Writes <name>.preproc.png next to the input: the exact image Tesseract
// sees for a frame. With -ocr the recognized lines are printed too.
func main() {
	in := flag.String("file", "", "frame image")
	fullFrame := flag.Bool("full-frame", false, "skip the region of interest crop")
	runOCR := flag.Bool("ocr", false, "also recognize the prepared image")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	img, err := imaging.Open(*in, imaging.AutoOrientation(true))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	rec := ocr.NewRecognizer(ocr.WithRegionOfInterest(!*fullFrame))
	if !*fullFrame {
		fmt.Printf("roi=%v of %v\n", ocr.RegionOfInterest(img.Bounds()), img.Bounds())
	}
	out := strings.TrimSuffix(*in, filepath.Ext(*in)) + ".preproc.png"
	if err := imaging.Save(rec.Prepare(img), out); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("wrote", out)

	if !*runOCR {
		return
	}
	lines, err := rec.RecognizeLines(context.Background(), img)
	if err != nil {
		log.Fatalf("ocr err: %v", err)
	}
	for _, l := range lines {
		if m, ok := iban.Extract(l); ok {
			fmt.Printf("%q -> %s\n", l, m.Digits)
			continue
		}
		fmt.Printf("%q\n", l)
	}
}
