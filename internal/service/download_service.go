package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
	"github.com/artemiysm/TG-Video/internal/metrics"
	"github.com/artemiysm/TG-Video/internal/options"
	"github.com/artemiysm/TG-Video/internal/progress"
	"github.com/artemiysm/TG-Video/internal/storage"
	"github.com/artemiysm/TG-Video/internal/validation"
)

const (
	msgInvalidURL = "❌ Please send a link that starts with http:// or https://"
	msgPreparing  = "🔎 Preparing download..."
	msgUploading  = "📤 Uploading..."
	msgDelivered  = "✅ Delivered"
	msgTooLarge   = "❌ The video is too large to send (%s). The limit is %s."
	msgFailed     = "❌ Download failed: %s"
	msgUnexpected = "❌ Something went wrong: %s"
	msgInternal   = "❌ Something went wrong. Please try again later."
)

// Engine downloads a single URL into the directory named by the options.
type Engine interface {
	Download(ctx context.Context, rawURL string, opts domain.DownloadOptions) (*domain.DeliveredFile, error)
}

// Transport is the part of the chat API the orchestrator needs.
type Transport interface {
	SendText(chatID int64, text string) (int, error)
	EditText(chatID int64, messageID int, text string) error
	Delete(chatID int64, messageID int) error
	SendVideo(chatID int64, path string) error
	SendDocument(chatID int64, path string) error
}

// DownloadService drives one request from a raw link to a delivered file.
type DownloadService struct {
	engine      Engine
	transport   Transport
	files       *storage.FileStorage
	builder     *options.Builder
	tracker     *progress.Tracker
	maxFileSize int64
	logger      *slog.Logger
}

// NewDownloadService creates a DownloadService. Files larger than
// maxFileSize bytes are discarded instead of delivered.
func NewDownloadService(
	engine Engine,
	transport Transport,
	files *storage.FileStorage,
	builder *options.Builder,
	tracker *progress.Tracker,
	maxFileSize int64,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		engine:      engine,
		transport:   transport,
		files:       files,
		builder:     builder,
		tracker:     tracker,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Process validates, downloads, size-checks and delivers req, then empties
// the user's working directory. Every failure is reported to the chat and
// none is returned.
func (s *DownloadService) Process(ctx context.Context, req *domain.DownloadRequest) (outcome domain.Outcome) {
	log := s.logger.With(
		"request_id", req.ID,
		"chat_id", req.ChatID,
		"user_id", req.UserID,
		"url", req.URL,
	)

	metrics.RequestsReceived.Inc()
	defer func() {
		metrics.RequestsFinished.WithLabelValues(outcome.String()).Inc()
		log.Info("request finished", "outcome", outcome)
	}()

	req.WorkDir = s.files.UserDir(req.UserID)

	// the failure goes into the status message before the tracker forgets it,
	// and files are removed only once the user has been told
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing request", "panic", r)
			s.report(req.ChatID, msgInternal, log)
			outcome = domain.OutcomeFailed
		}
		s.tracker.Reset(req.ChatID)
		s.cleanup(req.WorkDir, log)
	}()

	if err := validation.ValidateMediaURL(req.URL); err != nil {
		log.Info("rejected link", "error", err)
		s.report(req.ChatID, msgInvalidURL, log)
		return domain.OutcomeRejected
	}

	dir, err := s.files.EnsureUserDir(req.UserID)
	if err != nil {
		log.Error("failed to prepare working directory", "error", err)
		s.report(req.ChatID, fmt.Sprintf(msgUnexpected, err), log)
		return domain.OutcomeFailed
	}

	msgID, err := s.transport.SendText(req.ChatID, msgPreparing)
	if err != nil {
		metrics.StatusUpdateFailures.Inc()
		log.Warn("failed to send status message", "error", err)
	}
	s.tracker.Begin(req.ChatID, msgID)

	file, err := s.fetch(ctx, req.URL, s.builder.Build(req.URL, dir, req.ChatID), log)
	if err != nil {
		log.Error("download failed", "error", err)
		s.report(req.ChatID, failureText(err), log)
		return domain.OutcomeFailed
	}

	size, err := s.files.FileSize(file.Path)
	if err != nil {
		log.Error("failed to stat downloaded file", "path", file.Path, "error", err)
		s.report(req.ChatID, fmt.Sprintf(msgUnexpected, err), log)
		return domain.OutcomeFailed
	}

	if size > s.maxFileSize {
		if err := s.files.Remove(file.Path); err != nil {
			log.Warn("failed to remove oversized file", "path", file.Path, "error", err)
		}
		log.Info("file too large", "size", size, "limit", s.maxFileSize)
		s.report(req.ChatID, fmt.Sprintf(msgTooLarge, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(s.maxFileSize))), log)
		return domain.OutcomeTooLarge
	}

	s.status(req.ChatID, msgUploading, log)

	if err := s.deliver(req, file.Path); err != nil {
		log.Error("delivery failed", "path", file.Path, "error", err)
		s.report(req.ChatID, fmt.Sprintf(msgUnexpected, err), log)
		return domain.OutcomeFailed
	}
	metrics.DeliveredBytes.Add(float64(size))
	log.Info("file delivered", "title", file.Title, "size", size)

	s.status(req.ChatID, msgDelivered, log)
	if id := s.tracker.MessageID(req.ChatID); id != 0 {
		if err := s.transport.Delete(req.ChatID, id); err != nil {
			metrics.StatusUpdateFailures.Inc()
			log.Warn("failed to delete status message", "message_id", id, "error", err)
		}
	}

	return domain.OutcomeDelivered
}

// fetch runs the engine once more with the relaxed format when the first
// attempt fails because the requested format is unavailable.
func (s *DownloadService) fetch(ctx context.Context, rawURL string, opts domain.DownloadOptions, log *slog.Logger) (*domain.DeliveredFile, error) {
	start := time.Now()
	defer func() {
		metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	}()

	file, err := s.engine.Download(ctx, rawURL, opts)
	if err == nil || !errors.Is(err, errpkg.ErrFormatUnavailable) {
		return file, err
	}

	log.Info("requested format unavailable, retrying", "format", options.RelaxedFormat)
	metrics.FormatRetries.Inc()

	return s.engine.Download(ctx, rawURL, opts.WithFormat(options.RelaxedFormat))
}

func (s *DownloadService) deliver(req *domain.DownloadRequest, path string) error {
	if s.builder.DeliveryKind(req.URL) == domain.DeliveryVideo {
		return s.transport.SendVideo(req.ChatID, path)
	}
	return s.transport.SendDocument(req.ChatID, path)
}

// status edits the chat's status message if it has one.
func (s *DownloadService) status(chatID int64, text string, log *slog.Logger) {
	id := s.tracker.MessageID(chatID)
	if id == 0 {
		return
	}
	if err := s.transport.EditText(chatID, id, text); err != nil {
		metrics.StatusUpdateFailures.Inc()
		log.Warn("failed to update status message", "message_id", id, "error", err)
	}
}

// report shows a terminal message in place of the status message, or as a
// new message when there is none or it cannot be edited.
func (s *DownloadService) report(chatID int64, text string, log *slog.Logger) {
	if id := s.tracker.MessageID(chatID); id != 0 {
		err := s.transport.EditText(chatID, id, text)
		if err == nil {
			return
		}
		metrics.StatusUpdateFailures.Inc()
		log.Warn("failed to edit status message", "message_id", id, "error", err)
	}
	if _, err := s.transport.SendText(chatID, text); err != nil {
		metrics.StatusUpdateFailures.Inc()
		log.Warn("failed to send message", "error", err)
	}
}

func (s *DownloadService) cleanup(dir string, log *slog.Logger) {
	removed, err := s.files.Clear(dir)
	if err != nil {
		log.Error("failed to clean working directory", "dir", dir, "error", err)
		return
	}
	if removed > 0 {
		log.Debug("working directory cleaned", "dir", dir, "removed", removed)
	}
}

func failureText(err error) string {
	var dlErr *errpkg.DownloadError
	if errors.As(err, &dlErr) {
		return fmt.Sprintf(msgFailed, dlErr.Message)
	}
	return fmt.Sprintf(msgUnexpected, err)
}
