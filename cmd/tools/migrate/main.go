package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/match-video-api/internal/db"
)

func main() {
	steps := flag.Int("steps", 1, "migrations to roll back with down (0 = all)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	switch flag.Arg(0) {
	case "up":
		if err := db.Migrate(dbURL); err != nil {
			log.Fatal(err)
		}
		log.Println("migrations applied")
	case "down":
		if err := db.MigrateDown(dbURL, *steps); err != nil {
			log.Fatal(err)
		}
		log.Println("migrations rolled back")
	case "version":
		v, dirty, err := db.MigrationVersion(dbURL)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
