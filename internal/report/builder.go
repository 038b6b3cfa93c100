package report

import (
	"errors"
	"time"

	"go-produce-inspector/pkg/models"
)

// ErrNothingToExport is returned for a batch without classified results.
var ErrNothingToExport = errors.New("no results to export")

// Report is a ready-to-serve CSV export.
type Report struct {
	Name       string
	Data       []byte
	Rows       []Row
	Statistics models.Statistics
}

// Builder produces reports with a fixed prefix.
type Builder struct {
	prefix string
	now    func() time.Time
}

// NewBuilder creates a builder; an empty prefix means DefaultPrefix.
func NewBuilder(prefix string) *Builder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Builder{prefix: prefix, now: time.Now}
}

// WithClock replaces the time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Filename names a report created now.
func (b *Builder) Filename() string {
	return Filename(b.prefix, b.now())
}

// Build renders the batch. Failed items are not written as rows.
func (b *Builder) Build(batch *models.Batch) (*Report, error) {
	if batch.Empty() {
		return nil, ErrNothingToExport
	}

	rows := BuildRows(batch.Results)
	data, err := Marshal(rows)
	if err != nil {
		return nil, err
	}

	return &Report{
		Name:       b.Filename(),
		Data:       data,
		Rows:       rows,
		Statistics: ForBatch(batch),
	}, nil
}
