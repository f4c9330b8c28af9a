package registry

import "time"

// Event is one notification from a calculation run. ConnectorID is empty
// for run-level events: the start (Done false) and the finish (Done true).
type Event struct {
	RunID       string
	ConnectorID string
	Kind        string

	// Records fetched and kg CO2e derived; for the finish event TotalCO2eKg
	// is the run total.
	Records     int
	TotalCO2eKg float64

	// Run-level counters.
	Connectors int
	Processed  int
	Failed     int

	Err       error
	Retryable bool
	Done      bool
	At        time.Time
}

type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }
