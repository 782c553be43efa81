package websocket

import (
	"errors"
	"time"

	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/report"
	"github.com/raaihank/regex-splitter/internal/splitter"
)

// RunObserver publishes splitter progress for one run to the hub
type RunObserver struct {
	hub   *Hub
	runID string
}

var _ splitter.Observer = (*RunObserver)(nil)

// NewRunObserver returns an observer tagging every event with runID
func NewRunObserver(hub *Hub, runID string) *RunObserver {
	return &RunObserver{hub: hub, runID: runID}
}

func (o *RunObserver) publish(eventType EventType, data interface{}) {
	o.hub.BroadcastEvent(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		RunID:     o.runID,
	})
}

// RunStarted implements splitter.Observer
func (o *RunObserver) RunStarted(source, destination string) {
	o.publish(EventTypeRunStarted, RunStartedEvent{Source: source, Destination: destination})
}

// EntryClassified implements splitter.Observer
func (o *RunObserver) EntryClassified(line int, entry *dataset.ClassifiedEntry) {
	o.publish(EventTypeEntryClassified, EntryClassifiedEvent{
		Line:     line,
		Regex:    entry.Regex,
		FilePath: entry.FilePath,
		Positive: len(entry.PositiveInputs),
		Negative: len(entry.NegativeInputs),
	})
}

// EntrySkipped implements splitter.Observer
func (o *RunObserver) EntrySkipped(line int, err error) {
	kind := "parse"
	if errors.Is(err, dataset.ErrRegexCompile) {
		kind = "regex"
	}
	o.publish(EventTypeEntrySkipped, EntrySkippedEvent{Line: line, Kind: kind, Error: err.Error()})
}

// RunCompleted implements splitter.Observer
func (o *RunObserver) RunCompleted(summary *splitter.Summary) {
	event := RunCompletedEvent{
		Destination:   summary.Destination,
		Entries:       summary.Entries,
		TotalPositive: summary.TotalPositive,
		TotalNegative: summary.TotalNegative,
		ParseErrors:   summary.ParseErrors,
		RegexErrors:   summary.RegexErrors,
		DurationMS:    float64(summary.Duration.Microseconds()) / 1000,
	}
	if summary.Entries > 0 {
		avg := summary.Averages()
		event.MeanPositive = report.Fixed(avg.MeanPositive, 0)
		event.MeanNegative = report.Fixed(avg.MeanNegative, 0)
	}
	o.publish(EventTypeRunCompleted, event)
}
