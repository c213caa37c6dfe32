package services

import (
	"strings"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	// authenticThreshold is the confidence a card must exceed to be reported authentic
	authenticThreshold = 0.7

	missingInfoConfidence = 0.3
	notFoundConfidence    = 0.4

	IssueMissingInfo = "Missing essential card information"
	IssueNotFound    = "Card not found in official database"
)

// ScoreAuthenticity runs the heuristic checks over parsed card info. foundInDatabase is the
// result of the caller's card database lookup; the scorer does no I/O.
func ScoreAuthenticity(info models.CardInfo, foundInDatabase bool) models.AuthenticityResult {
	checks := models.AuthenticityChecks{
		HasName:      strings.TrimSpace(info.Name) != "",
		HasSetNumber: strings.TrimSpace(info.SetNumber) != "",
		HasHP:        strings.TrimSpace(info.HP) != "",
		// Placeholders until image-level analysis exists
		FontConsistency: true,
		PrintQuality:    true,
		HoloPattern:     true,
	}

	if !checks.HasName || !checks.HasSetNumber {
		return models.AuthenticityResult{
			IsAuthentic: false,
			Confidence:  missingInfoConfidence,
			Issues:      []string{IssueMissingInfo},
			Checks:      checks,
		}
	}

	if !foundInDatabase {
		return models.AuthenticityResult{
			IsAuthentic: false,
			Confidence:  notFoundConfidence,
			Issues:      []string{IssueNotFound},
			Checks:      checks,
		}
	}

	confidence := float64(checks.Passed()) / float64(checks.Total())
	return models.AuthenticityResult{
		IsAuthentic: confidence > authenticThreshold,
		Confidence:  confidence,
		Issues:      []string{},
		Checks:      checks,
	}
}
