package source

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Open opens the source at location. Failures to open are *dataset.IOError.
func Open(ctx context.Context, location string, opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	format := opts.Format
	if format == "" {
		format = DetectFormat(location)
	}
	opts.Logger.Debug("Opening source",
		zap.String("format", string(format)),
		zap.String("location", maskDatabaseURL(location)))

	switch format {
	case FormatPostgres:
		src, err := OpenPostgres(ctx, location, opts.Postgres, opts.Logger)
		if err != nil {
			return nil, &dataset.IOError{Op: "open", Path: maskDatabaseURL(location), Err: err}
		}
		return src, nil
	case FormatJSONL, FormatCSV, FormatParquet:
	default:
		return nil, &dataset.IOError{Op: "open", Path: location, Err: fmt.Errorf("unsupported source format: %s", format)}
	}

	file, err := os.Open(location)
	if err != nil {
		return nil, &dataset.IOError{Op: "open", Path: location, Err: err}
	}

	switch format {
	case FormatCSV:
		return NewCSV(file, opts.CSVHasHeader), nil
	case FormatParquet:
		src, err := NewParquet(file)
		if err != nil {
			file.Close()
			return nil, &dataset.IOError{Op: "open", Path: location, Err: err}
		}
		return src, nil
	default:
		return NewJSONL(file), nil
	}
}
