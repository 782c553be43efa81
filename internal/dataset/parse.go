package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseLine decodes one source line into an InputEntry. The error, if any,
// is a *ParseError carrying lineNo.
//
// Keys are matched exactly ("regex", "inputs", "file_path"); encoding/json
// would otherwise accept "REGEX" or "Inputs". Unknown keys are ignored and
// a repeated key keeps its last value, as JSON.parse does.
func ParseLine(lineNo int, line []byte) (*InputEntry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	entry, err := entryFromFields(fields)
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	return entry, nil
}

// Validate checks an entry built by a non-JSON source.
func Validate(lineNo int, e *InputEntry) error {
	if e == nil {
		return &ParseError{Line: lineNo, Err: errors.New("empty record")}
	}
	if e.Inputs == nil {
		return &ParseError{Line: lineNo, Err: errors.New(`missing field "inputs"`)}
	}
	return nil
}

func entryFromFields(fields map[string]json.RawMessage) (*InputEntry, error) {
	var entry InputEntry
	if err := decodeField(fields, "regex", &entry.Regex); err != nil {
		return nil, err
	}

	var inputs []*string
	if err := decodeField(fields, "inputs", &inputs); err != nil {
		return nil, err
	}
	var err error
	if entry.Inputs, err = stringsOf(inputs); err != nil {
		return nil, err
	}

	if err := decodeField(fields, "file_path", &entry.FilePath); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ParseInputs decodes a JSON array of strings, as stored in the inputs
// column of tabular sources. null, or a null element, is an error.
func ParseInputs(raw []byte) ([]string, error) {
	var inputs []*string
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, err
	}
	if inputs == nil {
		return nil, missingField("inputs")
	}
	return stringsOf(inputs)
}

func stringsOf(inputs []*string) ([]string, error) {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("field \"inputs\": element %d is null", i)
		}
		out[i] = *in
	}
	return out, nil
}

// decodeField unmarshals a required, non-null key into v
func decodeField(fields map[string]json.RawMessage, name string, v interface{}) error {
	raw, ok := fields[name]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return missingField(name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("missing field %q", name)
}
