package report

import (
	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/pkg/models"
)

// Calculate counts labels over classified results. failed is carried
// through unchanged and does not affect the percentages.
func Calculate(results []models.ClassificationResult, failed int) models.Statistics {
	total := len(results)
	damaged := 0
	for _, r := range results {
		if r.Label == classifier.Damaged {
			damaged++
		}
	}
	healthy := total - damaged

	s := models.Statistics{
		Total:        total,
		HealthyCount: healthy,
		DamagedCount: damaged,
		FailedCount:  failed,
	}
	if total > 0 {
		s.HealthyPercentage = float64(healthy) / float64(total) * 100
		s.DamagedPercentage = float64(damaged) / float64(total) * 100
	}
	return s
}

// ForBatch is Calculate over a batch.
func ForBatch(b *models.Batch) models.Statistics {
	if b == nil {
		return models.Statistics{}
	}
	return Calculate(b.Results, len(b.Failures))
}
