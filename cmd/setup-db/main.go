package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/topblame/ekani-crew-ai-server/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to database...")

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	fmt.Println("Database connection successful")
	fmt.Println("Executing analytics schema...")

	if _, err := db.Exec(database.Schema); err != nil {
		log.Fatalf("Failed to execute schema: %v", err)
	}

	// Verify tables were created
	var tableCount int
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name IN ('completed_matches', 'mbti_pair_stats')
	`).Scan(&tableCount)
	if err != nil {
		log.Fatalf("Failed to check tables: %v", err)
	}

	fmt.Printf("Created %d tables successfully\n", tableCount)

	var matchCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM completed_matches").Scan(&matchCount); err != nil {
		log.Printf("Could not count completed matches: %v", err)
	} else {
		fmt.Printf("Found %d completed matches in database\n", matchCount)
	}

	fmt.Println("Database setup complete")
}
