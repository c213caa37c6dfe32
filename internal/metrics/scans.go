package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

// UpdateScanMetrics queries the database and updates the scan history gauges.
// Call this after a scan is stored or periodically.
func UpdateScanMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var total int64
	if err := db.Model(&models.ScanRecord{}).Count(&total).Error; err != nil {
		log.Printf("Metrics: failed to count scans: %v", err)
	} else {
		ScansStoredTotal.Set(float64(total))
	}

	type authCount struct {
		IsAuthentic bool
		Count       int64
	}
	var authCounts []authCount
	if err := db.Model(&models.ScanRecord{}).
		Select("is_authentic, COUNT(*) as count").
		Group("is_authentic").
		Scan(&authCounts).Error; err != nil {
		log.Printf("Metrics: failed to count scans by authenticity: %v", err)
	} else {
		ScansByAuthenticity.Reset()
		for _, ac := range authCounts {
			label := "false"
			if ac.IsAuthentic {
				label = "true"
			}
			ScansByAuthenticity.WithLabelValues(label).Set(float64(ac.Count))
		}
	}

	var value float64
	if err := db.Model(&models.ScanRecord{}).
		Select("COALESCE(SUM(market_price), 0)").
		Scan(&value).Error; err != nil {
		log.Printf("Metrics: failed to sum scanned value: %v", err)
	} else {
		ScannedValueUSD.Set(value)
	}

	var cached int64
	if err := db.Model(&models.CachedCardPrices{}).Count(&cached).Error; err != nil {
		log.Printf("Metrics: failed to count cached prices: %v", err)
	} else {
		CachedPricesTotal.Set(float64(cached))
	}
}
