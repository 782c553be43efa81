// Package splitter classifies the inputs of each source entry into those its
// regex matches and those it does not, streaming the results as a JSON array.
package splitter

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/jsonarray"
	"github.com/raaihank/regex-splitter/internal/matcher"
	"github.com/raaihank/regex-splitter/internal/report"
	"github.com/raaihank/regex-splitter/internal/source"
)

// Splitter classifies entries. It is safe for concurrent use; each call to
// Split owns its totals.
type Splitter struct {
	config   Config
	logger   *zap.Logger
	cache    Cache
	observer Observer
	mu       sync.RWMutex
}

// New creates a new Splitter
func New(config Config, logger *zap.Logger, opts ...Option) *Splitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Dialect == "" {
		config.Dialect = matcher.DialectECMAScript
	}
	if config.MatchTimeout <= 0 {
		config.MatchTimeout = matcher.DefaultMatchTimeout
	}
	if config.Source.Logger == nil {
		config.Source.Logger = logger
	}

	s := &Splitter{
		config: config,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconfigure replaces the matching options for subsequent runs. Runs in
// progress keep the options they started with.
func (s *Splitter) Reconfigure(dialect matcher.Dialect, matchTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.Dialect = dialect
	if matchTimeout > 0 {
		s.config.MatchTimeout = matchTimeout
	}
	s.logger.Info("Splitter reconfigured",
		zap.String("dialect", string(dialect)),
		zap.Duration("match_timeout", s.config.MatchTimeout))
}

// With returns a Splitter sharing the current configuration and cache of s,
// with opts applied on top.
func (s *Splitter) With(opts ...Option) *Splitter {
	derived := &Splitter{
		config:   s.Config(),
		logger:   s.logger,
		cache:    s.cache,
		observer: s.observer,
	}
	for _, opt := range opts {
		opt(derived)
	}
	return derived
}

// Config returns a copy of the current configuration
func (s *Splitter) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SplitFile classifies the entries at inputPath into outputPath. The output
// is truncated first.
func (s *Splitter) SplitFile(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	cfg := s.Config()

	src, err := source.Open(ctx, inputPath, cfg.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, &dataset.IOError{Op: "create", Path: outputPath, Err: err}
	}
	defer out.Close()

	return s.run(ctx, cfg, src, out, inputPath, outputPath)
}

// Split classifies every entry of src and writes the array to w. If w is
// an io.Closer it is closed once the array is complete.
func (s *Splitter) Split(ctx context.Context, src source.Source, w io.Writer) (*Summary, error) {
	return s.run(ctx, s.Config(), src, w, "", nameOf(w))
}

// Classify partitions entry.Inputs by whether entry.Regex matches them. A
// pattern that fails to compile or to evaluate yields a
// *dataset.RegexCompileError for line.
func (s *Splitter) Classify(ctx context.Context, line int, entry *dataset.InputEntry) (*dataset.ClassifiedEntry, error) {
	result, _, err := s.classify(ctx, s.Config(), line, entry)
	return result, err
}

func (s *Splitter) classify(ctx context.Context, cfg Config, line int, entry *dataset.InputEntry) (*dataset.ClassifiedEntry, bool, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Lookup(ctx, cfg.Dialect, entry); ok {
			return cached, true, nil
		}
	}

	m, err := matcher.Compile(entry.Regex, matcher.Options{
		Dialect:      cfg.Dialect,
		MatchTimeout: cfg.MatchTimeout,
	})
	if err != nil {
		return nil, false, &dataset.RegexCompileError{Line: line, Pattern: entry.Regex, Err: err}
	}

	result := dataset.NewClassifiedEntry(entry)
	for _, input := range entry.Inputs {
		matched, err := m.MatchString(input)
		if err != nil {
			return nil, false, &dataset.RegexCompileError{Line: line, Pattern: entry.Regex, Err: err}
		}
		if matched {
			result.PositiveInputs = append(result.PositiveInputs, input)
		} else {
			result.NegativeInputs = append(result.NegativeInputs, input)
		}
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, cfg.Dialect, entry, result); err != nil {
			s.logger.Warn("Failed to cache result", zap.Int("line", line), zap.Error(err))
		}
	}
	return result, false, nil
}

func (s *Splitter) run(ctx context.Context, cfg Config, src source.Source, w io.Writer, srcName, dest string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Source: srcName, Destination: dest}

	if s.observer != nil {
		s.observer.RunStarted(srcName, dest)
	}

	aw := jsonarray.New(w, cfg.Separator)
	if err := aw.Open(); err != nil {
		return summary, &dataset.IOError{Op: "write", Path: dest, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		entry, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *dataset.ParseError
			if errors.As(err, &parseErr) {
				summary.ParseErrors++
				s.logger.Error("Failed to parse entry",
					zap.Int("line", parseErr.Line),
					zap.Error(parseErr.Err))
				s.skipped(parseErr.Line, err)
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			return summary, &dataset.IOError{Op: "read", Path: srcName, Err: err}
		}

		line := src.Line()
		classified, hit, err := s.classify(ctx, cfg, line, entry)
		if err != nil {
			summary.RegexErrors++
			s.logger.Error("Failed to compile regex",
				zap.Int("line", line),
				zap.String("regex", entry.Regex),
				zap.Error(errors.Unwrap(err)))
			s.skipped(line, err)
			continue
		}
		if hit {
			summary.CacheHits++
		}

		if err := aw.Append(classified); err != nil {
			return summary, &dataset.IOError{Op: "write", Path: dest, Err: err}
		}

		summary.Entries++
		summary.TotalPositive += len(classified.PositiveInputs)
		summary.TotalNegative += len(classified.NegativeInputs)

		if s.observer != nil {
			s.observer.EntryClassified(line, classified)
		}
	}

	if err := aw.Close(); err != nil {
		return summary, &dataset.IOError{Op: "write", Path: dest, Err: err}
	}
	summary.Duration = time.Since(start)

	s.logCompletion(summary)
	if s.observer != nil {
		s.observer.RunCompleted(summary)
	}
	return summary, nil
}

func (s *Splitter) skipped(line int, err error) {
	if s.observer != nil {
		s.observer.EntrySkipped(line, err)
	}
}

func (s *Splitter) logCompletion(summary *Summary) {
	s.logger.Info("Finished writing to",
		zap.String("path", summary.Destination),
		zap.Int("entries", summary.Entries),
		zap.Int("parse_errors", summary.ParseErrors),
		zap.Int("regex_errors", summary.RegexErrors),
		zap.Int("cache_hits", summary.CacheHits),
		zap.Duration("duration", summary.Duration))

	if summary.Entries == 0 {
		return
	}
	avg := summary.Averages()
	s.logger.Info("Average number of positive inputs",
		zap.String("average", report.Fixed(avg.MeanPositive, 0)))
	s.logger.Info("Average number of negative inputs",
		zap.String("average", report.Fixed(avg.MeanNegative, 0)))
}

// nameOf returns the file name of w when it has one.
func nameOf(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "stream"
}
