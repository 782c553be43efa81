package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Parquet reads rows with columns regex, inputs (repeated string) and
// file_path.
type Parquet struct {
	file   *os.File
	reader *parquet.Reader
	row    int
}

// NewParquet validates the file footer before handing it to the row reader,
// which panics on unreadable files.
func NewParquet(file *os.File) (*Parquet, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if _, err := parquet.OpenFile(file, info.Size()); err != nil {
		return nil, fmt.Errorf("invalid parquet file: %w", err)
	}

	return &Parquet{
		file:   file,
		reader: parquet.NewReader(file),
	}, nil
}

// Next returns the next row. A repeated column cannot tell an empty list
// from a missing one, so absent inputs read as an empty list.
func (s *Parquet) Next(ctx context.Context) (*dataset.InputEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry dataset.InputEntry
	if err := s.reader.Read(&entry); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read parquet row %d: %w", s.row+1, err)
	}
	s.row++

	if entry.Inputs == nil {
		entry.Inputs = []string{}
	}
	return &entry, nil
}

// Line returns the 1-based row of the last record read.
func (s *Parquet) Line() int {
	return s.row
}

// Close releases the reader and the file.
func (s *Parquet) Close() error {
	rerr := s.reader.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return rerr
}
