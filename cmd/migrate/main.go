package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dhawalhost/dirsync/pkg/database"
)

func main() {
	port, err := strconv.Atoi(envOr("DB_PORT", "3306"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	cfg := database.Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("DB_USER", "dirsync"),
		Password: envOr("DB_PASSWORD", "dirsync"),
		DBName:   envOr("DB_NAME", "legacy_users"),
	}

	fmt.Printf("Connecting to %s:%d/%s...\n", cfg.Host, cfg.Port, cfg.DBName)
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	defer db.Close()

	// Read and sort all .up.sql files from migrations directory
	files, err := os.ReadDir("migrations")
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	var upMigrations []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".up.sql") {
			upMigrations = append(upMigrations, f.Name())
		}
	}
	sort.Strings(upMigrations)

	for _, filename := range upMigrations {
		fmt.Printf("Applying migration: %s\n", filename)
		content, err := os.ReadFile("migrations/" + filename)
		if err != nil {
			log.Fatalf("Failed to read migration file %s: %v", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			// The most common error on re-run is "already exists";
			// warn and keep going rather than abort the whole batch.
			log.Printf("Warning applying %s: %v", filename, err)
		} else {
			fmt.Printf("Successfully applied %s\n", filename)
		}
	}

	fmt.Println("All migrations processed!")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
