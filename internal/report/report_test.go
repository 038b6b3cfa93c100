package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/pkg/models"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func sampleBatch() *models.Batch {
	return &models.Batch{
		ID: "b1",
		Results: []models.ClassificationResult{
			{Source: "apple_01.jpg", Label: classifier.Damaged, Confidence: 0.95, ProbHealthy: 0.05, ProbDamaged: 0.95, Thumbnail: "data:image/png;base64,AAAA"},
			{Source: "pear, green.png", Label: classifier.Healthy, Confidence: 0.9, ProbHealthy: 0.9, ProbDamaged: 0.1},
			{Source: "tomato.webp", Label: classifier.Damaged, Confidence: 0.7, ProbHealthy: 0.3, ProbDamaged: 0.7},
		},
		Failures: []models.ItemFailure{{Source: "broken.jpg", Kind: "decode", Message: "bad bytes"}},
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "identification_report_2025-06-01_12-00-00.csv", Filename(DefaultPrefix, now))
	assert.Equal(t, "identification_report_2025-06-01_12-00-00.csv", Filename("", now))

	// Crossing midnight
	late := time.Date(2025, 12, 31, 23, 30, 5, 0, time.UTC)
	assert.Equal(t, "batch_2026-01-01_01-30-05.csv", Filename("batch", late))

	// Non-UTC input is normalised first
	kyiv := time.FixedZone("EEST", 3*60*60)
	assert.Equal(t, "r_2025-06-01_12-00-00.csv", Filename("r", now.In(kyiv)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "95.00%", FormatPercent(0.95))
	assert.Equal(t, "90.00%", FormatPercent(0.9))
	assert.Equal(t, "0.00%", FormatPercent(0))
	assert.Equal(t, "100.00%", FormatPercent(1))
	assert.Equal(t, "33.33%", FormatPercent(1.0/3))

	v, err := ParsePercent(" 12.50% ")
	require.NoError(t, err)
	assert.InDelta(t, 0.125, v, 1e-9)

	_, err = ParsePercent("12.5")
	assert.Error(t, err)
	_, err = ParsePercent("abc%")
	assert.Error(t, err)
}

func TestEncode_Format(t *testing.T) {
	data, err := Marshal(BuildRows(sampleBatch().Results))
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, bom), "missing BOM")
	lines := strings.Split(strings.TrimRight(string(data[len(bom):]), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "filename,label,confidence,prob_healthy,prob_damaged", lines[0])
	assert.Equal(t, "apple_01.jpg,Damaged,95.00%,5.00%,95.00%", lines[1])
	assert.Equal(t, `"pear, green.png",Healthy,90.00%,90.00%,10.00%`, lines[2])
	assert.NotContains(t, string(data), "base64")
}

func TestRoundTrip(t *testing.T) {
	batch := sampleBatch()
	data, err := Marshal(BuildRows(batch.Results))
	require.NoError(t, err)

	rows, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, len(batch.Results))

	for i, row := range rows {
		got, err := row.Result()
		require.NoError(t, err)
		want := batch.Results[i]
		assert.Equal(t, want.Source, got.Source)
		assert.Equal(t, want.Label, got.Label)
		assert.InDelta(t, want.Confidence, got.Confidence, 0.005)
		assert.InDelta(t, want.ProbHealthy, got.ProbHealthy, 0.005)
		assert.InDelta(t, want.ProbDamaged, got.ProbDamaged, 0.005)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("name,label,confidence,prob_healthy,prob_damaged\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("filename,label,confidence,prob_healthy,prob_damaged\na.jpg,Healthy\n"))
	assert.Error(t, err)

	rows, err := Parse(strings.NewReader("filename,label,confidence,prob_healthy,prob_damaged\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCalculate(t *testing.T) {
	s := ForBatch(sampleBatch())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.DamagedCount)
	assert.Equal(t, 1, s.HealthyCount)
	assert.Equal(t, 1, s.FailedCount)
	assert.InDelta(t, 66.6667, s.DamagedPercentage, 1e-3)
	assert.InDelta(t, 33.3333, s.HealthyPercentage, 1e-3)
	assert.Equal(t, s.Total, s.HealthyCount+s.DamagedCount)

	empty := Calculate(nil, 2)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.HealthyPercentage)
	assert.Zero(t, empty.DamagedPercentage)
	assert.Equal(t, 2, empty.FailedCount)

	assert.Equal(t, models.Statistics{}, ForBatch(nil))
}

func TestCalculate_Invariant(t *testing.T) {
	labels := []classifier.Label{classifier.Healthy, classifier.Damaged}
	var results []models.ClassificationResult
	for i := 0; i < 50; i++ {
		results = append(results, models.ClassificationResult{Label: labels[(i*7)%3%2]})
		s := Calculate(results, 0)
		assert.Equal(t, s.Total, s.HealthyCount+s.DamagedCount)
		assert.InDelta(t, 100, s.HealthyPercentage+s.DamagedPercentage, 1e-9)
	}
}

func TestBuilder_Build(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	b := NewBuilder("").WithClock(clock)

	r, err := b.Build(sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, "identification_report_2025-06-01_12-00-00.csv", r.Name)
	assert.Len(t, r.Rows, 3)
	assert.Equal(t, 3, r.Statistics.Total)
	assert.True(t, bytes.HasPrefix(r.Data, bom))

	_, err = b.Build(&models.Batch{})
	assert.ErrorIs(t, err, ErrNothingToExport)
	_, err = b.Build(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
}
