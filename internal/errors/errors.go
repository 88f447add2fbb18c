package errors

import (
	"errors"
	"strings"
)

var (
	ErrInvalidURL        = errors.New("invalid media URL")
	ErrFileTooLarge      = errors.New("file exceeds the delivery size limit")
	ErrFormatUnavailable = errors.New("requested format is not available")
	ErrNoOutputFile      = errors.New("downloader produced no output file")
	ErrRequestInProgress = errors.New("request already in progress")
	ErrShuttingDown      = errors.New("service is shutting down")
)

// formatUnavailableMarker is the phrase yt-dlp uses when no stream matches the format expression.
const formatUnavailableMarker = "Requested format is not available"

// DownloadError is a failure reported by the extraction engine.
// Message is the engine's human-readable explanation.
type DownloadError struct {
	Message string
	Err     error
}

// NewDownloadError classifies an engine failure message.
func NewDownloadError(message string, cause error) *DownloadError {
	return &DownloadError{Message: message, Err: cause}
}

func (e *DownloadError) Error() string {
	return e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is reports format-unavailable failures as ErrFormatUnavailable.
func (e *DownloadError) Is(target error) bool {
	return target == ErrFormatUnavailable && strings.Contains(e.Message, formatUnavailableMarker)
}
