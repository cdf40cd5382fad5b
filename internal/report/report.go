// Package report renders comparison and analysis results into documents.
package report

import (
	"context"
	"time"

	"github.com/tgifai/crawlwatch/internal/compare"
)

// Comparison is the input of a report sink.
type Comparison struct {
	Domain       string
	PreviousDate string
	CurrentDate  string
	Diff         *compare.Diff
}

// Sink accepts a comparison and writes it somewhere. It returns the path of
// the written artifact.
type Sink interface {
	Render(ctx context.Context, dir, baseName string, cmp *Comparison) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, dir, baseName string, cmp *Comparison) (string, error)

func (f SinkFunc) Render(ctx context.Context, dir, baseName string, cmp *Comparison) (string, error) {
	return f(ctx, dir, baseName, cmp)
}

const (
	footerText = "Generated by crawlwatch"

	addedRows   = 15
	removedRows = 15
	changedURLs = 30
)

var nowFunc = time.Now
