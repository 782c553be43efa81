package report

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"os"
	"strconv"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Averages summarizes the partition sizes of a classified document.
type Averages struct {
	Entries       int     `json:"entries"`
	TotalPositive int     `json:"total_positive"`
	TotalNegative int     `json:"total_negative"`
	MeanPositive  float64 `json:"mean_positive"`
	MeanNegative  float64 `json:"mean_negative"`
}

// FromTotals builds Averages from running totals. Means are zero when
// entries is zero.
func FromTotals(entries, totalPositive, totalNegative int) *Averages {
	a := &Averages{
		Entries:       entries,
		TotalPositive: totalPositive,
		TotalNegative: totalNegative,
	}
	if entries > 0 {
		a.MeanPositive = float64(totalPositive) / float64(entries)
		a.MeanNegative = float64(totalNegative) / float64(entries)
	}
	return a
}

// Summarize sums partition sizes over entries. It returns
// dataset.ErrNoEntries for an empty slice.
func Summarize(entries []dataset.ClassifiedEntry) (*Averages, error) {
	if len(entries) == 0 {
		return nil, dataset.ErrNoEntries
	}
	var pos, neg int
	for i := range entries {
		pos += len(entries[i].PositiveInputs)
		neg += len(entries[i].NegativeInputs)
	}
	return FromTotals(len(entries), pos, neg), nil
}

// Decode parses a classified document.
func Decode(data []byte) ([]dataset.ClassifiedEntry, error) {
	var entries []dataset.ClassifiedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode classified entries: %w", err)
	}
	return entries, nil
}

// Load reads and decodes the document at path. Read failures are
// *dataset.IOError.
func Load(path string) ([]dataset.ClassifiedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &dataset.IOError{Op: "read", Path: path, Err: err}
	}
	return Decode(data)
}

// Average reads the document at path and returns its Averages.
func Average(path string) (*Averages, error) {
	entries, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Summarize(entries)
}

// Fixed formats x with the given number of decimals the way
// Number.prototype.toFixed does: the exact binary value of x is rounded,
// and a tie goes to the larger magnitude. 3/40 is stored just below
// 0.075, so it formats as "0.07".
func Fixed(x float64, places int) string {
	if places < 0 {
		places = 0
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	r := new(big.Rat).SetFloat64(x)
	neg := r.Sign() < 0
	r.Abs(r)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())

	s := new(big.Rat).SetFrac(n, scale).FloatString(places)
	if neg {
		s = "-" + s
	}
	return s
}
