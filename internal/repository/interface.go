package repository

import (
	"github.com/google/uuid"

	"github.com/artemiysm/TG-Video/internal/domain"
)

// Action is what the bot expects the next message from a user to be.
type Action string

const (
	ActionAwaitURL Action = "await_url"
)

// PendingRepo stores one-shot expectations about a user's next message.
type PendingRepo interface {
	Set(chatID, userID int64, action Action)
	Take(chatID, userID int64) (Action, bool)
}

// ActiveRepo tracks requests that are currently being processed.
type ActiveRepo interface {
	Acquire(req *domain.DownloadRequest) error
	Release(id uuid.UUID)
	List() []*domain.DownloadRequest
}
