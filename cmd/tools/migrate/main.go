package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-admin/internal/db"
)

func main() {
	flag.Usage = func() {
		log.Printf("usage: %s [up|down|version]", os.Args[0])
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	switch cmd {
	case "up":
		if err := db.Up(dbURL); err != nil {
			log.Fatal(err)
		}
		log.Println("migrations applied")
	case "down":
		if err := db.Down(dbURL); err != nil {
			log.Fatal(err)
		}
		log.Println("migrations rolled back")
	case "version":
		m, err := db.NewMigrator(dbURL)
		if err != nil {
			log.Fatal(err)
		}
		defer m.Close()
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("version %d dirty=%t", version, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
