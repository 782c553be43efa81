package jsonarray

import (
	"bytes"
	"errors"
	"testing"
)

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWriter(t *testing.T) {
	t.Run("EmptyArray", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, "")
		if err := w.Open(); err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if buf.String() != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})

	t.Run("SeparatorBetweenElementsOnly", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, ",\n")
		_ = w.Open()
		for _, v := range []int{1, 2, 3} {
			if err := w.Append(v); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		_ = w.Close()
		if buf.String() != "[1,\n2,\n3]" {
			t.Errorf("unexpected output %q", buf.String())
		}
		if w.Count() != 3 {
			t.Errorf("expected count 3, got %d", w.Count())
		}
	})

	t.Run("NoHTMLEscaping", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, ",")
		_ = w.Open()
		_ = w.Append(map[string]string{"regex": "<a>&"})
		_ = w.Close()
		want := `[{"regex":"<a>&"}]`
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("ClosesDestination", func(t *testing.T) {
		dst := &closeRecorder{}
		w := New(dst, ",")
		_ = w.Open()
		_ = w.Close()
		if !dst.closed {
			t.Error("expected destination to be closed")
		}
	})

	t.Run("Misuse", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, ",")
		if err := w.Append(1); !errors.Is(err, ErrNotOpen) {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
		if err := w.Close(); !errors.Is(err, ErrNotOpen) {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
		_ = w.Open()
		_ = w.Close()
		if err := w.Append(1); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if err := w.Open(); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("UnencodableValue", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, ",")
		_ = w.Open()
		if err := w.Append(make(chan int)); err == nil {
			t.Fatal("expected encode error")
		}
		_ = w.Append(1)
		_ = w.Close()
		if buf.String() != "[1]" {
			t.Errorf("failed element must not be written, got %q", buf.String())
		}
	})
}
