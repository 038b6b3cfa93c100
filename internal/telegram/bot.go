// Package telegram is a chat front end: users send photos and get a label
// back, and can ask for the running CSV report of their chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/classifier"
	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/internal/storage"
	"go-produce-inspector/pkg/models"
)

const (
	msgStart = `Hi! I sort produce photos into Healthy and Damaged.

Send me a photo (or an image file) and I will classify it. Every photo in this chat joins one batch.

Commands:
/report - download the batch as CSV
/reset - start a new batch
/help - this message`

	msgHelp = `How to use the bot:

1. Send a photo of a single fruit or vegetable
2. Wait for the label and confidence
3. Send /report to get every result of this chat as a CSV file

Tips:
- Shoot in good light
- Fill the frame with the item`

	msgSendPhoto       = "Please send a photo of the produce to classify."
	msgUnknownCommand  = "Unknown command. Use /help for the list."
	msgReset           = "Batch cleared. Send a photo to start a new one."
	msgNothingToExport = "Nothing classified yet. Send a photo first."
	msgUnavailable     = "The classifier is not available right now. Please try again later."
	msgProcessingError = "Could not process the image. Please try another photo."
)

// botAPI is the subset of *tgbotapi.BotAPI the handlers use.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot answers chat messages using a SessionService keyed by chat
type Bot struct {
	api      botAPI
	client   *tgbotapi.BotAPI
	sessions *service.SessionService
	fetcher  storage.ImageFetcher
}

// NewBot authorizes against Telegram
func NewBot(token string, sessions *service.SessionService, fetcher storage.ImageFetcher) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.WithField("account", client.Self.UserName).Info("Telegram bot authorized")

	b := newBot(client, sessions, fetcher)
	b.client = client
	return b, nil
}

func newBot(api botAPI, sessions *service.SessionService, fetcher storage.ImageFetcher) *Bot {
	return &Bot{api: api, sessions: sessions, fetcher: fetcher}
}

// Run long-polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if b.client == nil {
		return errors.New("telegram client not initialised")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// SessionKey maps a chat to its session id
func SessionKey(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		// The last size is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleImage(ctx, msg.Chat.ID, photo.FileID, "")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		b.handleImage(ctx, msg.Chat.ID, msg.Document.FileID, msg.Document.FileName)
	default:
		b.sendMessage(msg.Chat.ID, msgSendPhoto)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, msgStart)
	case "help":
		b.sendMessage(chatID, msgHelp)
	case "reset":
		if err := b.sessions.Reset(ctx, SessionKey(chatID)); err != nil {
			logger.WithError(err).WithField("chat_id", chatID).Error("Failed to reset chat session")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, msgReset)
	case "report":
		b.sendReport(ctx, chatID)
	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleImage(ctx context.Context, chatID int64, fileID, name string) {
	log := logger.WithFields(logrus.Fields{"chat_id": chatID, "file_id": fileID})

	upload, err := b.download(ctx, fileID, name)
	if err != nil {
		log.WithError(err).Warn("Failed to download image")
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	result, batch, err := b.sessions.Add(ctx, SessionKey(chatID), upload)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeInferenceUnavailable) {
			b.sendMessage(chatID, msgUnavailable)
			return
		}
		log.WithError(err).Warn("Image not classified")
		b.sendMessage(chatID, fmt.Sprintf("%s\n%s", msgProcessingError, userMessage(err)))
		return
	}

	b.sendMessage(chatID, FormatReply(result, report.ForBatch(batch)))
}

func (b *Bot) download(ctx context.Context, fileID, name string) (service.Upload, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return service.Upload{}, fmt.Errorf("get file: %w", err)
	}
	img, err := b.fetcher.FetchImage(ctx, link)
	if err != nil {
		return service.Upload{}, err
	}
	if name == "" {
		name = img.Name
	}
	return service.Upload{Name: name, Data: img.Data}, nil
}

func (b *Bot) sendReport(ctx context.Context, chatID int64) {
	r, err := b.sessions.Export(ctx, SessionKey(chatID))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			b.sendMessage(chatID, msgNothingToExport)
			return
		}
		logger.WithError(err).WithField("chat_id", chatID).Error("Failed to export chat report")
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.Name, Bytes: r.Data})
	doc.Caption = FormatStatistics(r.Statistics)
	if _, err := b.api.Send(doc); err != nil {
		logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send report")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}

// FormatReply renders one classification with the running batch totals
func FormatReply(result *models.ClassificationResult, stats models.Statistics) string {
	if result == nil {
		return msgProcessingError
	}
	mark := "✅"
	if result.Label == classifier.Damaged {
		mark = "⚠️"
	}
	return fmt.Sprintf("%s %s (%s confidence)\n%s",
		mark, result.Label, report.FormatPercent(result.Confidence), FormatStatistics(stats))
}

// FormatStatistics renders batch totals on one line
func FormatStatistics(s models.Statistics) string {
	line := fmt.Sprintf("Batch: %d classified, %d healthy (%.2f%%), %d damaged (%.2f%%)",
		s.Total, s.HealthyCount, s.HealthyPercentage, s.DamagedCount, s.DamagedPercentage)
	if s.FailedCount > 0 {
		line += fmt.Sprintf(", %d skipped", s.FailedCount)
	}
	return line
}

func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
