package discovery

import "fmt"

// ProgressStatus is the state of a probe within a run.
type ProgressStatus string

const (
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent is emitted for each probe while a run is in flight.
type ProgressEvent struct {
	Probe   Probe
	Status  ProgressStatus
	Message string
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressWorking:
		return fmt.Sprintf("  ● %s %s...", event.Probe.Method, event.Probe.Endpoint)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s", event.Probe.Label)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s: %s", event.Probe.Label, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Probe.Label)
	}
}
