package roster

import "marklist-backend/lib/scrapers/marklist"

type EventKind string

const (
	EventStepLoaded  EventKind = "step_loaded"
	EventSelected    EventKind = "selected"
	EventReportReady EventKind = "report_ready"
	EventError       EventKind = "error"
)

// Event reports batch progress to an optional observer, usually a CLI
// progress printer.
type Event struct {
	Kind    EventKind
	Step    marklist.StepName
	Course  string
	Options []marklist.Option
	Err     error
}

// emit never blocks. A slow or absent observer must not stall the
// scrape, so events are dropped when the channel is full.
func emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
