// Package bot routes incoming chat messages to commands and download requests.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
	repo "github.com/artemiysm/TG-Video/internal/repository"
	"github.com/artemiysm/TG-Video/internal/validation"
)

// ButtonDownload is the label of the reply keyboard button that starts a download.
const ButtonDownload = "📥 Download video"

const (
	msgGreeting = "👋 Hi! I download videos from TikTok, YouTube and many other sites and send them back to you.\n\n" +
		"Tap \"" + ButtonDownload + "\" or just send me a link."
	msgPrompt       = "🔗 Send me the video link."
	msgHint         = "Send /download or tap \"" + ButtonDownload + "\" to get a video."
	msgShuttingDown = "🔧 The bot is restarting. Please send the link again in a minute."
	msgHelp         = "/download - download a video\n/menu - show the menu\n\n" +
		"Links must start with http:// or https://. Files larger than %s can't be sent."
)

// Transport sends bot replies.
type Transport interface {
	SendText(chatID int64, text string) (int, error)
	SendMenu(chatID int64, text, button string) error
}

// Submitter accepts download requests for background processing.
type Submitter interface {
	Submit(req *domain.DownloadRequest) error
}

// Handler turns messages into replies and download requests.
type Handler struct {
	transport   Transport
	pending     repo.PendingRepo
	submitter   Submitter
	directLinks bool
	maxFileSize int64
	logger      *slog.Logger
}

// NewHandler creates a Handler. With directLinks set, a bare link is
// downloaded without going through /download first.
func NewHandler(
	transport Transport,
	pending repo.PendingRepo,
	submitter Submitter,
	directLinks bool,
	maxFileSize int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		transport:   transport,
		pending:     pending,
		submitter:   submitter,
		directLinks: directLinks,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Run handles updates until the channel is closed or ctx is done.
func (h *Handler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	h.logger.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(update)
		}
	}
}

// HandleUpdate handles a single update. Only new messages are handled.
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	h.HandleMessage(update.Message)
}

// HandleMessage routes one message. A message that follows a download
// prompt is always treated as the link, even if it looks like a command.
func (h *Handler) HandleMessage(msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.From == nil {
		return
	}
	chatID, userID := msg.Chat.ID, msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if action, ok := h.pending.Take(chatID, userID); ok && action == repo.ActionAwaitURL {
		h.submit(chatID, userID, text)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "menu":
			h.menu(chatID)
		case "download":
			h.prompt(chatID, userID)
		case "help":
			h.reply(chatID, fmt.Sprintf(msgHelp, humanize.IBytes(uint64(h.maxFileSize))))
		default:
			h.reply(chatID, msgHint)
		}
		return
	}

	switch {
	case text == ButtonDownload:
		h.prompt(chatID, userID)
	case h.directLinks && validation.IsMediaURL(text):
		h.submit(chatID, userID, text)
	default:
		h.reply(chatID, msgHint)
	}
}

func (h *Handler) menu(chatID int64) {
	if err := h.transport.SendMenu(chatID, msgGreeting, ButtonDownload); err != nil {
		h.logger.Warn("failed to send menu", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) prompt(chatID, userID int64) {
	h.pending.Set(chatID, userID, repo.ActionAwaitURL)
	h.reply(chatID, msgPrompt)
}

func (h *Handler) submit(chatID, userID int64, text string) {
	req := domain.NewDownloadRequest(chatID, userID, text)
	err := h.submitter.Submit(req)
	switch {
	case err == nil:
		h.logger.Info("download request accepted", "request_id", req.ID, "chat_id", chatID, "user_id", userID)
	case errors.Is(err, errpkg.ErrShuttingDown):
		h.reply(chatID, msgShuttingDown)
	case errors.Is(err, errpkg.ErrRequestInProgress):
		// the dispatcher already told the user
	default:
		h.logger.Error("failed to submit request", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.transport.SendText(chatID, text); err != nil {
		h.logger.Warn("failed to send reply", "chat_id", chatID, "error", err)
	}
}
