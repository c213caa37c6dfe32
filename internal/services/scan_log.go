package services

import (
	"log"
	"sync/atomic"
)

var scanDebugEnabled atomic.Bool

// SetDebugLogging switches verbose scan logging on or off. Called once at startup from config.
func SetDebugLogging(enabled bool) {
	scanDebugEnabled.Store(enabled)
	if enabled {
		log.Println("[SCAN] Debug logging: ENABLED")
	}
}

// debugLog logs only when debug logging is enabled.
// Use this for per-request details: OCR text, lookup parameters, cache hits.
func debugLog(format string, args ...interface{}) {
	if scanDebugEnabled.Load() {
		log.Printf("[SCAN DEBUG] "+format, args...)
	}
}

// infoLog always logs scan events worth keeping: stage failures, degraded results, provider errors.
func infoLog(format string, args ...interface{}) {
	log.Printf("[SCAN] "+format, args...)
}
