package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"tulisbareng/pkg/logger"

	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool used for document metadata lookups.
// DATABASE_URL wins; otherwise the DSN is assembled from discrete parts.
func Connect() *sql.DB {
	connStr := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if connStr == "" {
		dbUser := strings.TrimSpace(os.Getenv("user"))
		dbPass := strings.TrimSpace(os.Getenv("password"))
		dbHost := strings.TrimSpace(os.Getenv("host"))
		dbPort := strings.TrimSpace(os.Getenv("port"))
		dbName := strings.TrimSpace(os.Getenv("dbname"))
		sslMode := strings.TrimSpace(os.Getenv("sslmode"))
		if sslMode == "" {
			sslMode = "require"
		}
		connStr = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", dbUser, dbPass, dbHost, dbPort, dbName, sslMode)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open database connection: %v", err)
	}

	// Retry a few times in case of temporary DNS/network blips.
	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	logger.Sugar.Fatalf("Could not connect to database after retries: %v", err)
	return nil
}
