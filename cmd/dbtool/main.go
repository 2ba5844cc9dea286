package main

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/adapters/repositories"
	"delivery-trajectory-service/internal/config"
	"delivery-trajectory-service/internal/platform/db"
	"delivery-trajectory-service/internal/ports"
	"flag"
	"log"
	"strings"

	"github.com/joho/godotenv"
)

// dbtool creates the schema and loads demo position reports.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	driver := flag.String("driver", config.Get("DB_DRIVER", "sqlite"), "sqlite or postgres")
	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/reports.json"), "JSON file of position reports, empty to skip")
	flag.Parse()

	var (
		conn *sql.DB
		err  error
	)
	switch *driver {
	case "postgres":
		databaseURL := config.Get("DATABASE_URL", "")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}
		conn, err = db.Open(databaseURL)
	case "sqlite":
		conn, err = db.OpenSqlite(config.Get("DB_PATH", "data/app.db"))
	default:
		log.Fatalf("unknown driver %q", *driver)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	initAndSeed(conn, *driver, *seedPath)
}

func initAndSeed(conn *sql.DB, driver, seedPath string) {
	var writer ports.ReportWriter

	log.Println("Initializing database schema...")
	if driver == "postgres" {
		if err := repositories.InitPostgresSchema(conn); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		writer = repositories.NewSQLReportRepository(conn)
	} else {
		if err := repositories.InitSchema(conn); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		writer = repositories.NewSqliteReportRepository(conn)
	}
	log.Println("Schema ready.")

	if seedPath == "" {
		return
	}

	log.Println("Seeding database...")
	reports, err := repositories.LoadSeedReports(seedPath)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	if err := writer.InsertReports(context.Background(), reports); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("Seeding complete. reports=%d", len(reports))
}
