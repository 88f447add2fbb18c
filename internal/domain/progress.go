package domain

import (
	"fmt"
	"time"
)

// StatusDownloading is the engine status tag for an in-progress transfer.
const StatusDownloading = "downloading"

// ProgressEvent is a raw status report emitted by the extraction engine.
type ProgressEvent struct {
	Status  string
	Percent string
	Speed   string
	ETA     string
}

// ProgressObserver receives engine progress events. It is called
// synchronously on the goroutine that runs the download.
type ProgressObserver interface {
	OnProgress(ev ProgressEvent)
}

// ProgressObserverFunc adapts a function to ProgressObserver.
type ProgressObserverFunc func(ev ProgressEvent)

// OnProgress calls f(ev).
func (f ProgressObserverFunc) OnProgress(ev ProgressEvent) { f(ev) }

// ProgressState is the rendered progress of one chat's status message.
type ProgressState struct {
	Percent    float64
	Speed      string
	ETA        string
	MessageID  int
	LastUpdate time.Time
}

// FormatETA returns seconds formatted as mm:ss or hh:mm:ss, or "—" if unknown
func FormatETA(seconds int) string {
	if seconds <= 0 {
		return "—"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
