package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"ibanscan/models"
	"ibanscan/pkg/config"
)

func main() {
	admin := flag.Bool("admin", false, "grant the administrator role")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-admin] <username> <password>")
		os.Exit(2)
	}
	username, password := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := models.Open(cfg.Database.DSN, cfg.Database.AutoMigrate)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	role := models.RoleUser
	if *admin {
		role = models.RoleAdministrator
	}
	user, err := models.CreateUser(db, username, password, role)
	if errors.Is(err, models.ErrUserExists) {
		fmt.Printf("user %s already exists (id=%d)\n", username, user.ID)
		return
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, role)
}
