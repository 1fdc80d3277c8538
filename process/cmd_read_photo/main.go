package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ibanscan/pkg/iban"
	"ibanscan/pkg/ocr"
)

func main() {
	f := flag.String("file", "", "photo to read an IBAN from")
	lang := flag.String("lang", "eng", "tesseract languages, + separated")
	timeout := flag.Duration("timeout", time.Minute, "give up after")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	m, line, err := ocr.ReadIbanFromImage(ctx, *f, ocr.WithLanguages(strings.Split(*lang, "+")...), ocr.WithRegionOfInterest(false))
	if errors.Is(err, ocr.ErrNoIban) {
		fmt.Println("no iban found")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("ocr error: %v", err)
	}
	fmt.Printf("iban=%s formatted=%q whole_line=%v line=%q\n", m.Digits, iban.Format(m.Digits, m.Country), m.IsWholeLine(line), line)
}
