package dataset

// InputEntry is one source record: a pattern, the candidate inputs to test
// against it, and the path of the file the pattern was extracted from
type InputEntry struct {
	Regex    string   `json:"regex" parquet:"regex"`
	Inputs   []string `json:"inputs" parquet:"inputs"`
	FilePath string   `json:"file_path" parquet:"file_path"`
}

// ClassifiedEntry is the output record for one InputEntry. Field order is
// the serialized key order.
type ClassifiedEntry struct {
	Regex          string   `json:"regex"`
	PositiveInputs []string `json:"positive_inputs"`
	NegativeInputs []string `json:"negative_inputs"`
	FilePath       string   `json:"file_path"`
}

// NewClassifiedEntry returns an entry for e with empty, non-nil partitions
// so that an entry without matches serializes as [] rather than null.
func NewClassifiedEntry(e *InputEntry) *ClassifiedEntry {
	return &ClassifiedEntry{
		Regex:          e.Regex,
		PositiveInputs: make([]string, 0, len(e.Inputs)),
		NegativeInputs: make([]string, 0),
		FilePath:       e.FilePath,
	}
}

// Total returns the number of inputs across both partitions.
func (c *ClassifiedEntry) Total() int {
	return len(c.PositiveInputs) + len(c.NegativeInputs)
}
