package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ibanscan/pkg/config"
	"ibanscan/pkg/ocr"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// `./ibanscan migrate` runs AutoMigrate and seeding then exits.
	// Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.Database.AutoMigrate = true
		if _, err := openDB(cfg); err != nil {
			log.Fatal(err)
		}
		fmt.Println("migration and seeding completed")
		return
	}

	db, err := openDB(cfg)
	if err != nil {
		// scans still work without a database; they are just not stored
		log.Printf("database disabled: %v", err)
	}

	rec := ocr.NewRecognizer(ocr.WithLanguages(cfg.Scan.Languages...))
	photos := ocr.NewRecognizer(ocr.WithLanguages(cfg.Scan.Languages...), ocr.WithRegionOfInterest(false))
	s := newServer(cfg, db, rec, photos)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go s.registry.StartSweeper(ctx, time.Minute, cfg.Scan.SessionIdle)

	r := gin.Default()
	s.setupRoutes(r)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("listening on %s", srv.Addr)

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
