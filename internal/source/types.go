package source

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Source yields input entries one at a time.
//
// Next returns io.EOF once the source is exhausted and a *dataset.ParseError
// for a record that should be skipped. Any other error is fatal.
type Source interface {
	Next(ctx context.Context) (*dataset.InputEntry, error)
	// Line returns the position of the record last returned by Next.
	Line() int
	Close() error
}

// Format represents supported source formats
type Format string

const (
	FormatJSONL    Format = "jsonl"
	FormatCSV      Format = "csv"
	FormatParquet  Format = "parquet"
	FormatPostgres Format = "postgres"
)

// Options configures Open
type Options struct {
	// Format forces a format; empty detects it from the location
	Format       Format
	CSVHasHeader bool
	Postgres     PostgresOptions
	Logger       *zap.Logger
}

// PostgresOptions contains the query and pool settings for PostgreSQL sources
type PostgresOptions struct {
	Query           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DetectFormat detects the source format from a location
func DetectFormat(location string) Format {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return FormatPostgres
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	case strings.HasSuffix(lower, ".parquet"):
		return FormatParquet
	default:
		return FormatJSONL // .jsonl, .ndjson, .json and anything else
	}
}
