package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/zfogg/huddle/internal/config"
	"github.com/zfogg/huddle/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		printStatus()
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  status - Ping the database and list which tables exist")
		os.Exit(1)
	}
}

func connect() {
	driver, dsn := config.DatabaseFromEnv()
	log.Printf("Connecting to %s database...", driver)

	db, err := database.Open(driver, dsn, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Health(db); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	database.DB = db
}

func runMigrationsUp() {
	connect()
	defer database.Close()

	log.Println("Running migrations...")
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("All migrations completed successfully")
}

func printStatus() {
	connect()
	defer database.Close()

	for _, table := range database.Tables(database.DB) {
		state := "missing"
		if table.Exists {
			state = "ok"
		}
		fmt.Printf("%-16s %s\n", table.Name, state)
	}
}
