// Package transport talks to the Telegram Bot API.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollTimeout is the long polling timeout in seconds.
const pollTimeout = 60

// Telegram sends and edits messages and uploads files for the bot.
type Telegram struct {
	api      *tgbotapi.BotAPI
	uploader *tgbotapi.BotAPI
	logger   *slog.Logger
}

// NewTelegram connects to the public Bot API.
func NewTelegram(token string, uploadTimeout time.Duration, debug bool, logger *slog.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, uploadTimeout, debug, logger)
}

// NewTelegramWithEndpoint connects to a Bot API server at endpoint, a format
// string taking the token and the method name. File uploads go through a
// separate client bounded by uploadTimeout.
func NewTelegramWithEndpoint(token, endpoint string, uploadTimeout time.Duration, debug bool, logger *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = debug

	uploader, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: uploadTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create upload client: %w", err)
	}
	uploader.Debug = debug

	logger.Info("authorized on telegram", "username", api.Self.UserName)

	return &Telegram{
		api:      api,
		uploader: uploader,
		logger:   logger,
	}, nil
}

// Username returns the bot's username.
func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

// SendText sends a plain text message and returns its id.
func (t *Telegram) SendText(chatID int64, text string) (int, error) {
	msg, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return msg.MessageID, nil
}

// SendMenu sends text with a reply keyboard holding a single button.
func (t *Telegram) SendMenu(chatID int64, text, button string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(button)),
	)
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send menu: %w", err)
	}
	return nil
}

// EditText replaces the text of a message. Editing to identical text is not an error.
func (t *Telegram) EditText(chatID int64, messageID int, text string) error {
	_, err := t.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// Delete removes a message.
func (t *Telegram) Delete(chatID int64, messageID int) error {
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// SendVideo uploads the file at path as an inline, streamable video.
func (t *Telegram) SendVideo(chatID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := tgbotapi.NewVideo(chatID, tgbotapi.FileReader{Name: filepath.Base(path), Reader: f})
	video.SupportsStreaming = true

	if _, err := t.uploader.Send(video); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}

// SendDocument uploads the file at path as a generic attachment.
func (t *Telegram) SendDocument(chatID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filepath.Base(path), Reader: f})

	if _, err := t.uploader.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Updates starts long polling. The channel is closed after ctx is done.
func (t *Telegram) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := t.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		t.logger.Info("stopping update polling")
		t.api.StopReceivingUpdates()
	}()

	return updates
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
