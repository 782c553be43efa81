// Package jsonarray streams values into a single JSON array without holding
// the array in memory.
package jsonarray

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var (
	// ErrNotOpen is returned when Append or Close precede Open.
	ErrNotOpen = errors.New("jsonarray: writer not open")
	// ErrClosed is returned when the writer is used after Close.
	ErrClosed = errors.New("jsonarray: writer closed")
)

// Writer emits "[" on Open, one encoded element per Append with sep between
// elements, and "]" on Close.
type Writer struct {
	dst     io.Writer
	buf     *bufio.Writer
	sep     []byte
	enc     *json.Encoder
	scratch bytes.Buffer
	count   int
	opened  bool
	closed  bool
}

// New returns a Writer over w. An empty sep defaults to ",".
func New(w io.Writer, sep string) *Writer {
	if sep == "" {
		sep = ","
	}
	aw := &Writer{
		dst: w,
		buf: bufio.NewWriter(w),
		sep: []byte(sep),
	}
	aw.enc = json.NewEncoder(&aw.scratch)
	aw.enc.SetEscapeHTML(false)
	return aw
}

// Open writes the opening bracket.
func (w *Writer) Open() error {
	if w.closed {
		return ErrClosed
	}
	if w.opened {
		return nil
	}
	w.opened = true
	return w.buf.WriteByte('[')
}

// Append encodes v as the next array element.
func (w *Writer) Append(v any) error {
	if w.closed {
		return ErrClosed
	}
	if !w.opened {
		return ErrNotOpen
	}

	w.scratch.Reset()
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	elem := bytes.TrimSuffix(w.scratch.Bytes(), []byte{'\n'})

	if w.count > 0 {
		if _, err := w.buf.Write(w.sep); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(elem); err != nil {
		return err
	}
	w.count++
	return nil
}

// Close writes the closing bracket, flushes, and closes the destination
// when it is an io.Closer.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	if !w.opened {
		return ErrNotOpen
	}
	w.closed = true

	if err := w.buf.WriteByte(']'); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if c, ok := w.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Flush pushes buffered bytes to the destination without closing the array.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Count returns the number of elements appended so far.
func (w *Writer) Count() int {
	return w.count
}
