package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs data fixups after schema changes. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := backfillScanTimes(db); err != nil {
		return err
	}
	return nil
}

// backfillScanTimes fills scanned_at for rows written before the column existed
func backfillScanTimes(db *gorm.DB) error {
	if !db.Migrator().HasColumn("scan_records", "scanned_at") {
		return nil
	}

	result := db.Exec(`
		UPDATE scan_records
		SET scanned_at = created_at
		WHERE scanned_at IS NULL OR scanned_at = ''
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill scan_records.scanned_at: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Backfilled scanned_at on %d scan_records rows", result.RowsAffected)
	}
	return nil
}
