package repository

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
)

// ActiveRequests is an in-memory ActiveRepo. A user and a chat can each
// have at most one request in flight.
type ActiveRequests struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*domain.DownloadRequest
	byUser map[int64]uuid.UUID
	byChat map[int64]uuid.UUID
}

// NewActiveRequests creates an empty registry.
func NewActiveRequests() *ActiveRequests {
	return &ActiveRequests{
		byID:   make(map[uuid.UUID]*domain.DownloadRequest),
		byUser: make(map[int64]uuid.UUID),
		byChat: make(map[int64]uuid.UUID),
	}
}

// Acquire registers req, or returns ErrRequestInProgress if its user or chat is busy.
func (r *ActiveRequests) Acquire(req *domain.DownloadRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byUser[req.UserID]; busy {
		return errpkg.ErrRequestInProgress
	}
	if _, busy := r.byChat[req.ChatID]; busy {
		return errpkg.ErrRequestInProgress
	}

	r.byID[req.ID] = req
	r.byUser[req.UserID] = req.ID
	r.byChat[req.ChatID] = req.ID

	slog.Debug("request acquired", "request_id", req.ID, "chat_id", req.ChatID, "user_id", req.UserID)
	return nil
}

// Release forgets a request. Unknown ids are ignored.
func (r *ActiveRequests) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byUser, req.UserID)
	delete(r.byChat, req.ChatID)
}

// List returns in-flight requests, oldest first.
func (r *ActiveRequests) List() []*domain.DownloadRequest {
	r.mu.RLock()
	reqs := make([]*domain.DownloadRequest, 0, len(r.byID))
	for _, req := range r.byID {
		reqs = append(reqs, req)
	}
	r.mu.RUnlock()

	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
	return reqs
}
