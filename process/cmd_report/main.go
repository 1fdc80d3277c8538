package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ibanscan/pkg/config"
	"ibanscan/process/report"
)

func main() {
	username := flag.String("username", "admin", "username to report for")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	schema := flag.Bool("schema", false, "print foreign key constraints instead of a report")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.Database.Enabled() {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := report.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if *schema {
		err = report.PrintForeignKeys(ctx, db, os.Stdout)
	} else {
		err = report.Run(ctx, db, os.Stdout, *username, *month, *list)
	}
	if err != nil {
		log.Fatal(err)
	}
}
