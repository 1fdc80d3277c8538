// Command cmd_scan_frames scans a directory of camera frames for an IBAN.
// Every image file is one frame, in name order; with -watch new files are
// appended to the stream as they arrive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ibanscan/models"
	"ibanscan/pkg/config"
	"ibanscan/pkg/ocr"
	"ibanscan/pkg/scan"
	"ibanscan/process/framescan"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var verbose bool

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func main() {
	dirFlag := flag.String("dir", "frames", "directory of frame images")
	dryRun := flag.Bool("dry-run", true, "print results only; set -dry-run=false to store them (needs DB_DSN)")
	watch := flag.Bool("watch", false, "watch the directory for new frames and keep scanning")
	workers := flag.Int("workers", 0, "OCR worker pool size (default NumCPU)")
	move := flag.Bool("move", false, "move processed frames into <dir>/processed")
	username := flag.String("user", "admin", "owner of stored scans")
	noROI := flag.Bool("full-frame", false, "recognize whole frames instead of the central band")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-frame logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db *gorm.DB
	var userID uint
	if !*dryRun {
		db, err = models.Open(cfg.Database.DSN, cfg.Database.AutoMigrate)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		var u models.User
		if err := db.Where("username = ?", *username).First(&u).Error; err != nil {
			log.Fatalf("user %s not found: %v", *username, err)
		}
		userID = u.ID
	}

	source := models.SourceWatch
	if !*watch {
		source = models.SourceCamera
	}
	session := scan.NewSession(uuid.NewString(), scan.WithSource(source), scan.WithOnStable(func(res scan.Result) {
		fmt.Printf("IBAN %s frame=%d\n", res.Formatted, res.Frame)
		if db == nil {
			return
		}
		row := models.IbanScan{UserID: userID, Iban: res.Digits, SessionID: res.SessionID, Formatted: res.Formatted, Source: res.Source, Frames: res.Frame}
		created, err := models.SaveScan(db, &row)
		switch {
		case err != nil:
			log.Printf("ERROR store scan: %v", err)
		case created:
			log.Printf("STORED scan id=%d iban=%s", row.ID, res.Digits)
		default:
			logV("SKIP scan already stored iban=%s", res.Digits)
		}
	}))

	rec := ocr.NewRecognizer(ocr.WithLanguages(cfg.Scan.Languages...), ocr.WithRegionOfInterest(!*noROI))
	scanner := framescan.New(*dirFlag, rec, session,
		framescan.WithWorkers(*workers),
		framescan.WithMove(*move),
		framescan.WithContinuous(*watch),
		framescan.WithFrameHook(func(name string, rep scan.FrameReport) {
			var found []string
			for _, c := range rep.Candidates {
				found = append(found, c.Match.Digits)
			}
			logV("FRAME %d %s candidates=[%s]", rep.Frame, name, strings.Join(found, ","))
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*watch {
		log.Printf("Scanning %d frames in %s", len(framescan.ListFrames(*dirFlag)), *dirFlag)
		if _, err := scanner.ScanDir(ctx); err != nil {
			if errors.Is(err, scan.ErrStreamClosed) {
				fmt.Println("no stable IBAN found")
				os.Exit(1)
			}
			log.Fatalf("scan: %v", err)
		}
		return
	}

	// existing frames first, then new arrivals, as one stream
	names := make(chan string, 256)
	events, err := framescan.Watch(ctx, *dirFlag)
	if err != nil {
		log.Fatalf("watch failed: %v", err)
	}
	go func() {
		defer close(names)
		for _, f := range framescan.ListFrames(*dirFlag) {
			names <- f
		}
		for n := range events {
			names <- n
		}
	}()
	results, err := scanner.Run(ctx, names)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, scan.ErrStreamClosed) {
		log.Fatalf("scan: %v", err)
	}
	log.Printf("stopped after %d results", len(results))
}
