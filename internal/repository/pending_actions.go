package repository

import (
	"sync"
)

type pendingKey struct {
	chatID int64
	userID int64
}

// PendingActions is an in-memory PendingRepo keyed by chat and user.
type PendingActions struct {
	mu      sync.Mutex
	actions map[pendingKey]Action
}

// NewPendingActions creates an empty PendingActions.
func NewPendingActions() *PendingActions {
	return &PendingActions{actions: make(map[pendingKey]Action)}
}

// Set records the expected next action, replacing any previous one.
func (p *PendingActions) Set(chatID, userID int64, action Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[pendingKey{chatID, userID}] = action
}

// Take returns and removes the expected next action.
func (p *PendingActions) Take(chatID, userID int64) (Action, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pendingKey{chatID, userID}
	action, ok := p.actions[key]
	if ok {
		delete(p.actions, key)
	}
	return action, ok
}
