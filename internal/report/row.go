// Package report turns classified batches into CSV exports and summary
// statistics.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/pkg/models"
)

// Header is the fixed CSV column order.
var Header = []string{"filename", "label", "confidence", "prob_healthy", "prob_damaged"}

// Row is the string projection of one ClassificationResult.
type Row struct {
	Filename    string
	Label       string
	Confidence  string
	ProbHealthy string
	ProbDamaged string
}

func (r Row) record() []string {
	return []string{r.Filename, r.Label, r.Confidence, r.ProbHealthy, r.ProbDamaged}
}

// FormatPercent renders a [0,1] value as "NN.NN%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// ParsePercent is the inverse of FormatPercent.
func ParsePercent(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if !strings.HasSuffix(t, "%") {
		return 0, fmt.Errorf("missing %% in %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(t, "%"), 64)
	if err != nil {
		return 0, err
	}
	return v / 100, nil
}

// NewRow projects one result. The thumbnail is dropped.
func NewRow(r models.ClassificationResult) Row {
	return Row{
		Filename:    r.Source,
		Label:       r.Label.String(),
		Confidence:  FormatPercent(r.Confidence),
		ProbHealthy: FormatPercent(r.ProbHealthy),
		ProbDamaged: FormatPercent(r.ProbDamaged),
	}
}

// BuildRows projects results in order.
func BuildRows(results []models.ClassificationResult) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, NewRow(r))
	}
	return rows
}

// Result converts a parsed row back to a result. Only the fields present
// in the CSV are filled.
func (r Row) Result() (models.ClassificationResult, error) {
	label, err := classifier.ParseLabel(r.Label)
	if err != nil {
		return models.ClassificationResult{}, err
	}
	conf, err := ParsePercent(r.Confidence)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("confidence: %w", err)
	}
	healthy, err := ParsePercent(r.ProbHealthy)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("prob_healthy: %w", err)
	}
	damaged, err := ParsePercent(r.ProbDamaged)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("prob_damaged: %w", err)
	}
	return models.ClassificationResult{
		Source:      r.Filename,
		Label:       label,
		Confidence:  conf,
		ProbHealthy: healthy,
		ProbDamaged: damaged,
	}, nil
}
