package report

import (
	"errors"

	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Averager logs the mean partition sizes of an existing output document.
type Averager struct {
	logger *zap.Logger
}

// NewAverager creates an Averager
func NewAverager(logger *zap.Logger) *Averager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Averager{logger: logger}
}

// Report logs the averages for the document at path, rounded to two
// decimals. Failures are logged and returned; nothing is logged as an
// average in that case.
func (a *Averager) Report(path string) (*Averages, error) {
	avg, err := Average(path)
	if err != nil {
		a.logFailure(path, err)
		return nil, err
	}

	a.logger.Info("Average number of positive inputs",
		zap.String("file", path),
		zap.String("average", Fixed(avg.MeanPositive, 2)))
	a.logger.Info("Average number of negative inputs",
		zap.String("file", path),
		zap.String("average", Fixed(avg.MeanNegative, 2)))
	return avg, nil
}

// ReportPercentiles logs the partition sizes at each percentile in ps.
func (a *Averager) ReportPercentiles(path string, ps []float64) ([]Point, error) {
	points, err := Percentiles(path, ps)
	if err != nil {
		a.logFailure(path, err)
		return nil, err
	}

	for _, p := range points {
		a.logger.Info("Percentile",
			zap.String("percentile", Fixed(p.Percentile, 0)),
			zap.String("positive", Fixed(p.Positive, 2)),
			zap.String("negative", Fixed(p.Negative, 2)))
	}
	return points, nil
}

func (a *Averager) logFailure(path string, err error) {
	switch {
	case errors.Is(err, dataset.ErrIO):
		a.logger.Error("Error reading file", zap.String("file", path), zap.Error(err))
	case errors.Is(err, dataset.ErrNoEntries):
		a.logger.Warn("No entries to average", zap.String("file", path))
	default:
		a.logger.Error("Error parsing JSON", zap.String("file", path), zap.Error(err))
	}
}
