package source

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// JSONL reads one JSON object per line. Memory is bounded by the longest line.
type JSONL struct {
	r      *bufio.Reader
	closer io.Closer
	line   int
	done   bool
}

// NewJSONL returns a line source over r. If r is an io.Closer, Close closes it.
func NewJSONL(r io.Reader) *JSONL {
	s := &JSONL{r: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next decoded entry. Zero-length lines are skipped; other
// lines are not trimmed beyond their terminator.
func (s *JSONL) Next(ctx context.Context) (*dataset.InputEntry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.done {
			return nil, io.EOF
		}

		raw, err := s.r.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			s.done = true
			if len(raw) == 0 {
				return nil, io.EOF
			}
		}

		s.line++
		line := trimEOL(raw)
		if len(line) == 0 {
			continue
		}
		return dataset.ParseLine(s.line, line)
	}
}

// Line returns the number of the last line read.
func (s *JSONL) Line() int {
	return s.line
}

// Close closes the underlying reader when it is closable.
func (s *JSONL) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}
