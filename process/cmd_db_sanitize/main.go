package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ibanscan/models"
	"ibanscan/pkg/config"
	"ibanscan/process/sanitize"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed master roles and admin user")
		tables = flag.String("tables", sanitize.DefaultTables, "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := models.Open(cfg.Database.DSN, false)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	existing, err := sanitize.ExistingTables(ctx, db, sanitize.ParseTables(*tables))
	if err != nil {
		log.Fatal(err)
	}
	if len(existing) == 0 {
		log.Println("no requested tables present in the database; nothing to do")
		return
	}
	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}
	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}
	if err := sanitize.Truncate(ctx, db, existing, *reseed); err != nil {
		log.Fatal(err)
	}
	log.Println("Truncate completed.")
}
