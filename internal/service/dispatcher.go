package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
	"github.com/artemiysm/TG-Video/internal/metrics"
	"github.com/artemiysm/TG-Video/internal/progress"
	repo "github.com/artemiysm/TG-Video/internal/repository"
)

const msgBusy = "⏳ I'm still working on your previous link. Please wait until it finishes."

// Processor handles a single request to completion.
type Processor interface {
	Process(ctx context.Context, req *domain.DownloadRequest) domain.Outcome
}

// Notifier sends plain text replies.
type Notifier interface {
	SendText(chatID int64, text string) (int, error)
}

// Dispatcher runs each accepted request in its own goroutine so one slow
// download never blocks the update loop. A user and a chat each have at
// most one request in flight.
type Dispatcher struct {
	processor Processor
	active    repo.ActiveRepo
	tracker   *progress.Tracker
	notifier  Notifier
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	processor Processor,
	active repo.ActiveRepo,
	tracker *progress.Tracker,
	notifier Notifier,
	logger *slog.Logger,
) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		processor: processor,
		active:    active,
		tracker:   tracker,
		notifier:  notifier,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit starts processing req in the background. It returns
// ErrRequestInProgress, after telling the chat, if the user or the chat
// already has a request in flight.
func (d *Dispatcher) Submit(req *domain.DownloadRequest) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errpkg.ErrShuttingDown
	}

	if err := d.active.Acquire(req); err != nil {
		d.mu.Unlock()
		metrics.RequestsFinished.WithLabelValues(domain.OutcomeBusy.String()).Inc()
		d.logger.Info("request rejected, previous one still running",
			"chat_id", req.ChatID,
			"user_id", req.UserID,
		)
		if _, sendErr := d.notifier.SendText(req.ChatID, msgBusy); sendErr != nil {
			d.logger.Warn("failed to send busy reply", "chat_id", req.ChatID, "error", sendErr)
		}
		return err
	}
	d.wg.Add(1)
	d.mu.Unlock()

	metrics.ActiveRequests.Inc()
	go d.run(req)
	return nil
}

func (d *Dispatcher) run(req *domain.DownloadRequest) {
	defer d.wg.Done()
	defer metrics.ActiveRequests.Dec()
	defer d.active.Release(req.ID)

	d.processor.Process(d.ctx, req)
}

// Active returns the in-flight requests with their latest progress.
func (d *Dispatcher) Active() []domain.ActiveRequest {
	reqs := d.active.List()
	out := make([]domain.ActiveRequest, 0, len(reqs))
	for _, req := range reqs {
		ar := domain.ActiveRequest{
			ID:        req.ID,
			ChatID:    req.ChatID,
			UserID:    req.UserID,
			URL:       req.URL,
			StartedAt: req.CreatedAt,
		}
		if st, ok := d.tracker.Snapshot(req.ChatID); ok {
			ar.Percent = st.Percent
		}
		out = append(out, ar)
	}
	return out
}

// Shutdown stops accepting requests and waits for running ones. If ctx
// expires first, running downloads are cancelled and ctx's error returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.logger.Info("shutting down dispatcher")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		d.logger.Warn("dispatcher shutdown timed out, downloads cancelled")
		return ctx.Err()
	}
}
