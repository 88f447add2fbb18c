// Package progress turns engine progress events into a single, throttled,
// continuously edited status message per chat.
package progress

import (
	"log/slog"
	"time"

	"github.com/artemiysm/TG-Video/internal/domain"
	"github.com/artemiysm/TG-Video/internal/metrics"
)

// DefaultInterval is the minimum time between two renders in the same chat.
const DefaultInterval = 2 * time.Second

// Messenger sends and edits plain text chat messages.
type Messenger interface {
	SendText(chatID int64, text string) (int, error)
	EditText(chatID int64, messageID int, text string) error
}

// Reporter renders progress events into status messages.
type Reporter struct {
	messenger Messenger
	tracker   *Tracker
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewReporter creates a Reporter writing through messenger and keeping its
// per-chat state in tracker.
func NewReporter(messenger Messenger, tracker *Tracker, interval time.Duration, logger *slog.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		messenger: messenger,
		tracker:   tracker,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the wall clock used for throttling.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

// Report handles one engine event for chatID. Send and edit failures are
// logged and never returned.
func (r *Reporter) Report(chatID int64, ev domain.ProgressEvent) {
	if ev.Status != domain.StatusDownloading {
		return
	}

	state, ok := r.tracker.advance(chatID, r.now(), r.interval, SanitizePercent(ev.Percent), ev.Speed, ev.ETA)
	if !ok {
		return
	}

	text := Render(state)

	if state.MessageID == 0 {
		id, err := r.messenger.SendText(chatID, text)
		if err != nil {
			metrics.StatusUpdateFailures.Inc()
			r.logger.Warn("failed to send status message", "chat_id", chatID, "error", err)
			return
		}
		r.tracker.setMessageID(chatID, id)
	} else if err := r.messenger.EditText(chatID, state.MessageID, text); err != nil {
		metrics.StatusUpdateFailures.Inc()
		r.logger.Warn("failed to edit status message", "chat_id", chatID, "message_id", state.MessageID, "error", err)
		return
	}

	metrics.ProgressRenders.Inc()
}
