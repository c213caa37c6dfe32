package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

// Open connects to the SQLite database at dbPath, creating its directory if needed, and
// migrates the schema. verbose logs every SQL statement.
func Open(dbPath string, verbose bool) (*gorm.DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	log.Println("Database connected successfully")

	if err := db.AutoMigrate(&models.ScanRecord{}, &models.CachedCardPrices{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("running data migrations: %w", err)
	}

	log.Println("Database migration completed")
	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
