package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// CSV reads rows of regex,inputs,file_path where inputs is a JSON array.
type CSV struct {
	reader     *csv.Reader
	closer     io.Closer
	skipHeader bool
	row        int
}

// NewCSV returns a CSV source over r.
func NewCSV(r io.Reader, hasHeader bool) *CSV {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3 // regex, inputs, file_path

	s := &CSV{reader: reader, skipHeader: hasHeader}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next entry.
func (s *CSV) Next(ctx context.Context) (*dataset.InputEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.skipHeader {
		s.skipHeader = false
		if _, err := s.reader.Read(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
	}

	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	s.row++
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &dataset.ParseError{Line: s.row, Err: err}
		}
		return nil, err
	}

	entry := &dataset.InputEntry{
		Regex:    record[0],
		FilePath: record[2],
	}
	inputs, err := dataset.ParseInputs([]byte(record[1]))
	if err != nil {
		return nil, &dataset.ParseError{Line: s.row, Err: fmt.Errorf("inputs column: %w", err)}
	}
	entry.Inputs = inputs
	if err := dataset.Validate(s.row, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Line returns the 1-based row of the last record read.
func (s *CSV) Line() int {
	return s.row
}

// Close closes the underlying reader when it is closable.
func (s *CSV) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
