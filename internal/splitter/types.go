package splitter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/matcher"
	"github.com/raaihank/regex-splitter/internal/report"
	"github.com/raaihank/regex-splitter/internal/source"
)

// Config contains splitter configuration
type Config struct {
	Dialect      matcher.Dialect
	MatchTimeout time.Duration
	Separator    string         // between array elements, "," when empty
	Source       source.Options // used by SplitFile
}

// Summary reports the outcome of one run. Totals cover written entries only.
type Summary struct {
	RunID         string        `json:"run_id,omitempty"`
	Source        string        `json:"source,omitempty"`
	Destination   string        `json:"destination"`
	Entries       int           `json:"entries"`
	TotalPositive int           `json:"total_positive"`
	TotalNegative int           `json:"total_negative"`
	ParseErrors   int           `json:"parse_errors"`
	RegexErrors   int           `json:"regex_errors"`
	CacheHits     int           `json:"cache_hits"`
	Duration      time.Duration `json:"duration"`
}

// Averages returns the run's mean partition sizes
func (s *Summary) Averages() *report.Averages {
	return report.FromTotals(s.Entries, s.TotalPositive, s.TotalNegative)
}

// Cache stores classification results across runs
type Cache interface {
	Lookup(ctx context.Context, dialect matcher.Dialect, entry *dataset.InputEntry) (*dataset.ClassifiedEntry, bool)
	Store(ctx context.Context, dialect matcher.Dialect, entry *dataset.InputEntry, result *dataset.ClassifiedEntry) error
}

// Observer receives progress callbacks during a run. Calls are made from
// the goroutine running the split.
type Observer interface {
	RunStarted(source, destination string)
	EntryClassified(line int, entry *dataset.ClassifiedEntry)
	EntrySkipped(line int, err error)
	RunCompleted(summary *Summary)
}

// Option configures a Splitter
type Option func(*Splitter)

// WithCache enables the result cache
func WithCache(c Cache) Option {
	return func(s *Splitter) {
		s.cache = c
	}
}

// WithObserver registers a progress observer
func WithObserver(o Observer) Option {
	return func(s *Splitter) {
		s.observer = o
	}
}

// WithLogger replaces the logger, typically with one carrying a run or
// request ID
func WithLogger(logger *zap.Logger) Option {
	return func(s *Splitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}
