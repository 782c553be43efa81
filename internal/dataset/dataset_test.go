package dataset

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	t.Run("ValidEntry", func(t *testing.T) {
		e, err := ParseLine(1, []byte(`{"regex":"^a","inputs":["abc","xyz"],"file_path":"f1"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Regex != "^a" || e.FilePath != "f1" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if len(e.Inputs) != 2 || e.Inputs[0] != "abc" || e.Inputs[1] != "xyz" {
			t.Errorf("unexpected inputs: %v", e.Inputs)
		}
	})

	t.Run("EmptyInputsAccepted", func(t *testing.T) {
		e, err := ParseLine(1, []byte(`{"regex":"x","inputs":[],"file_path":""}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Inputs == nil || len(e.Inputs) != 0 {
			t.Errorf("expected empty non-nil inputs, got %#v", e.Inputs)
		}
	})

	t.Run("UnknownKeysIgnored", func(t *testing.T) {
		e, err := ParseLine(1, []byte(`{"regex":"a","inputs":["a"],"file_path":"f","extra":1,"Regex":"z"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Regex != "a" {
			t.Errorf("expected exact key to win, got %q", e.Regex)
		}
	})

	tests := []struct {
		name string
		line string
	}{
		{"InvalidJSON", `{"regex": "a",`},
		{"NotAnObject", `[1,2,3]`},
		{"Null", `null`},
		{"MissingRegex", `{"inputs":["a"],"file_path":"f"}`},
		{"MissingInputs", `{"regex":"a","file_path":"f"}`},
		{"NullInputs", `{"regex":"a","inputs":null,"file_path":"f"}`},
		{"MissingFilePath", `{"regex":"a","inputs":["a"]}`},
		{"WrongInputType", `{"regex":"a","inputs":[1],"file_path":"f"}`},
		{"NullInputElement", `{"regex":"a","inputs":["a",null],"file_path":"f"}`},
		{"InputsNotArray", `{"regex":"a","inputs":"a","file_path":"f"}`},
		{"KeysDifferInCase", `{"REGEX":"b","Inputs":["b"],"FILE_PATH":"g"}`},
		{"NullFilePath", `{"regex":"a","inputs":["a"],"file_path":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(7, []byte(tt.line))
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != 7 {
				t.Errorf("expected line 7, got %d", pe.Line)
			}
			if !errors.Is(err, ErrParse) {
				t.Error("expected errors.Is(err, ErrParse)")
			}
		})
	}
}

func TestClassifiedEntryJSON(t *testing.T) {
	c := NewClassifiedEntry(&InputEntry{Regex: "z", Inputs: []string{"a"}, FilePath: "p"})
	c.NegativeInputs = append(c.NegativeInputs, "a")

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"regex":"z","positive_inputs":[],"negative_inputs":["a"],"file_path":"p"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
	if c.Total() != 1 {
		t.Errorf("expected total 1, got %d", c.Total())
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"Parse", &ParseError{Line: 1, Err: cause}, ErrParse},
		{"RegexCompile", &RegexCompileError{Line: 1, Pattern: "(", Err: cause}, ErrRegexCompile},
		{"IO", &IOError{Op: "open", Path: "x", Err: cause}, ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected %v to match %v", tt.err, tt.sentinel)
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("expected %v to wrap cause", tt.err)
			}
		})
	}

	if !errors.Is(&UsageError{Msg: "x"}, ErrUsage) {
		t.Error("expected UsageError to match ErrUsage")
	}
	if errors.Is(&ParseError{Err: cause}, ErrRegexCompile) {
		t.Error("ParseError must not match ErrRegexCompile")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(1, nil); !errors.Is(err, ErrParse) {
		t.Errorf("expected parse error for nil entry, got %v", err)
	}
	if err := Validate(1, &InputEntry{Regex: "a"}); !errors.Is(err, ErrParse) {
		t.Errorf("expected parse error for nil inputs, got %v", err)
	}
	if err := Validate(1, &InputEntry{Regex: "a", Inputs: []string{}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseInputs(t *testing.T) {
	got, err := ParseInputs([]byte(`["a",""]`))
	if err != nil || len(got) != 2 || got[1] != "" {
		t.Fatalf("unexpected result %#v, %v", got, err)
	}
	for _, raw := range []string{`null`, `["a",null]`, `[1]`, `"a"`} {
		if _, err := ParseInputs([]byte(raw)); err == nil {
			t.Errorf("ParseInputs(%s): expected error", raw)
		}
	}
}
