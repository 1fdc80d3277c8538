package main

import (
	"flag"
	"fmt"
	"log"

	"ibanscan/models"
	"ibanscan/pkg/config"
)

func main() {
	username := flag.String("username", "", "username to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("--username and --password are required")
	}
	if len(*password) < 6 {
		log.Fatal("password too short (min 6)")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := models.Open(cfg.Database.DSN, false)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := models.SetPassword(db, *username, *password); err != nil {
		log.Fatalf("update failed: %v", err)
	}
	fmt.Printf("Password reset for user %s\n", *username)
}
