package progress

import (
	"sync"
	"time"

	"github.com/artemiysm/TG-Video/internal/domain"
)

// Tracker holds the status message state of every chat with a request in flight.
// State is keyed by chat so concurrent requests never share a status message.
type Tracker struct {
	mu     sync.Mutex
	states map[int64]*domain.ProgressState
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[int64]*domain.ProgressState)}
}

// Begin resets the chat's state and binds it to an existing status message.
// A zero messageID means the reporter creates the status message itself.
func (t *Tracker) Begin(chatID int64, messageID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[chatID] = &domain.ProgressState{MessageID: messageID}
}

// MessageID returns the chat's status message id, or 0 if there is none.
func (t *Tracker) MessageID(chatID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[chatID]; ok {
		return st.MessageID
	}
	return 0
}

// Snapshot returns a copy of the chat's state.
func (t *Tracker) Snapshot(chatID int64) (domain.ProgressState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[chatID]
	if !ok {
		return domain.ProgressState{}, false
	}
	return *st, true
}

// Reset forgets the chat's state.
func (t *Tracker) Reset(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, chatID)
}

// advance records a new reading unless the previous render was less than
// interval ago. It returns the state to render and whether to render it.
func (t *Tracker) advance(chatID int64, now time.Time, interval time.Duration, percent float64, speed, eta string) (domain.ProgressState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[chatID]
	if !ok {
		st = &domain.ProgressState{}
		t.states[chatID] = st
	}

	if !st.LastUpdate.IsZero() && now.Sub(st.LastUpdate) < interval {
		return domain.ProgressState{}, false
	}

	st.Percent = percent
	st.Speed = speed
	st.ETA = eta
	st.LastUpdate = now
	return *st, true
}

func (t *Tracker) setMessageID(chatID int64, messageID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[chatID]; ok {
		st.MessageID = messageID
	}
}
