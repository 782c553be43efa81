package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Postgres streams entries from a query result. The query must return the
// columns regex (text), inputs (text[]) and file_path (text).
type Postgres struct {
	db     *sqlx.DB
	rows   *sqlx.Rows
	logger *zap.Logger
	row    int
}

type postgresRow struct {
	Regex    sql.NullString `db:"regex"`
	Inputs   pq.StringArray `db:"inputs"`
	FilePath sql.NullString `db:"file_path"`
}

// OpenPostgres connects to dsn and starts the configured query
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions, logger *zap.Logger) (*Postgres, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, errors.New("postgres source query is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	rows, err := db.QueryxContext(ctx, opts.Query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}

	logger.Info("Postgres source opened",
		zap.String("database_url", maskDatabaseURL(dsn)),
		zap.Int("max_open_conns", opts.MaxOpenConns))

	return &Postgres{db: db, rows: rows, logger: logger}, nil
}

// Next returns the next row. Rows that fail to scan or hold NULL fields are
// parse errors.
func (s *Postgres) Next(ctx context.Context) (*dataset.InputEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate entries: %w", err)
		}
		return nil, io.EOF
	}
	s.row++

	var r postgresRow
	if err := s.rows.StructScan(&r); err != nil {
		return nil, &dataset.ParseError{Line: s.row, Err: err}
	}
	return r.entry(s.row)
}

func (r *postgresRow) entry(row int) (*dataset.InputEntry, error) {
	if !r.Regex.Valid {
		return nil, &dataset.ParseError{Line: row, Err: errors.New(`missing field "regex"`)}
	}
	if !r.FilePath.Valid {
		return nil, &dataset.ParseError{Line: row, Err: errors.New(`missing field "file_path"`)}
	}
	entry := &dataset.InputEntry{
		Regex:    r.Regex.String,
		Inputs:   []string(r.Inputs),
		FilePath: r.FilePath.String,
	}
	if err := dataset.Validate(row, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Line returns the 1-based row of the last record read.
func (s *Postgres) Line() int {
	return s.row
}

// Close closes the result set and the pool
func (s *Postgres) Close() error {
	rerr := s.rows.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return rerr
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	// Simple masking - replace password with ***
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
