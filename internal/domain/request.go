package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadRequest is a single URL submitted by a user. It lives for one
// download-and-deliver run and owns WorkDir for that time.
type DownloadRequest struct {
	ID        uuid.UUID `json:"id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	URL       string    `json:"url"`
	WorkDir   string    `json:"work_dir"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDownloadRequest creates a request for the given chat and user.
// The working directory is assigned later by the orchestrator.
func NewDownloadRequest(chatID, userID int64, text string) *DownloadRequest {
	return &DownloadRequest{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    userID,
		URL:       strings.TrimSpace(text),
		CreatedAt: time.Now(),
	}
}

// DeliveredFile is a downloaded file that is about to be sent to the chat.
type DeliveredFile struct {
	Path  string
	Title string
	Size  int64
}

// DeliveryKind selects how a file is attached to the outgoing message.
type DeliveryKind string

const (
	DeliveryVideo    DeliveryKind = "video"
	DeliveryDocument DeliveryKind = "document"
)

// ActiveRequest is a point-in-time view of an in-flight request.
type ActiveRequest struct {
	ID        uuid.UUID `json:"request_id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	URL       string    `json:"url"`
	Percent   float64   `json:"percent"`
	StartedAt time.Time `json:"started_at"`
}
