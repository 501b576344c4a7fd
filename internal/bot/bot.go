package bot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"leafscan/internal/imaging"
	"leafscan/internal/models"
	"leafscan/internal/services"
)

const (
	msgStart = `🍃 Plant Disease Detection

Send me a photo of a plant and I will detect the leaves and classify their diseases.

Commands:
/help - how to use the bot`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a photo (or a jpg/png file) of a plant
2️⃣ Wait while the image is analysed
3️⃣ You get the annotated image, every detected leaf and a summary table

💡 The first request may take a while if the model is still loading.`

	msgSendPhoto      = "📸 Please send a plant photo."
	msgUnknownCommand = "❓ Unknown command. Use /help."
	msgProcessing     = "🔍 Detecting and classifying..."
	msgNoAnnotated    = "⚠️ No annotated image returned."
	msgNoDetections   = "⚠️ No objects detected."
	msgRetry          = "🔁 You can send the same photo again."

	downloadTimeout = 2 * time.Minute
)

// Bot renders detection reports in Telegram chats
type Bot struct {
	api        *tgbotapi.BotAPI
	service    *services.ReportService
	logger     *zap.Logger
	httpClient *http.Client
	maxSize    int64
}

// NewBot creates a new bot
func NewBot(token string, service *services.ReportService, maxSize int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:        api,
		service:    service,
		logger:     logger,
		httpClient: &http.Client{Timeout: downloadTimeout},
		maxSize:    maxSize,
	}, nil
}

// Run processes updates until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
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

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if len(msg.Photo) > 0 {
		// Берём фото с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleImage(ctx, msg.Chat.ID, photo.FileID, "photo.jpg", "image/jpeg")
		return
	}

	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		b.handleImage(ctx, msg.Chat.ID, msg.Document.FileID, msg.Document.FileName, msg.Document.MimeType)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)
	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)
	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) handleImage(ctx context.Context, chatID int64, fileID, filename, mimeType string) {
	b.sendMessage(chatID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.logger.Error("Error downloading file", zap.String("file_id", fileID), zap.Error(err))
		b.sendMessage(chatID, "❌ Could not download the image. Please try again.")
		return
	}

	report, err := b.service.Analyze(ctx, filename, mimeType, imageData)
	if err != nil {
		b.sendMessage(chatID, errorText(err))
		return
	}

	b.sendReport(chatID, report)
}

func (b *Bot) sendReport(chatID int64, report *models.Report) {
	if report.AnnotatedImage == nil {
		b.sendMessage(chatID, msgNoAnnotated)
	} else {
		b.sendPhoto(chatID, report.AnnotatedImage, "Annotated image")
	}

	if report.NoDetections {
		b.sendMessage(chatID, msgNoDetections)
		return
	}

	for _, detection := range report.Detections {
		b.sendPhoto(chatID, detection.Image, caption(detection.Record))
	}

	b.sendMessage(chatID, formatSummary(report.SummaryRows))
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return b.fetch(ctx, file.Link(b.api.Token))
}

// fetch reads at most maxSize+1 bytes so that oversized files still fail the size check.
func (b *Bot) fetch(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status code %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if b.maxSize > 0 {
		body = io.LimitReader(resp.Body, b.maxSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (b *Bot) sendPhoto(chatID int64, img image.Image, text string) {
	data, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		b.logger.Error("Error encoding photo", zap.Error(err))
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.jpg", Bytes: data})
	photo.Caption = text
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("Error sending photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func errorText(err error) string {
	var clientErr *services.ClientError
	if !errors.As(err, &clientErr) {
		return "❌ " + services.UserMessage(err)
	}

	text := "❌ " + clientErr.Message()
	if clientErr.Kind == services.KindTimeout {
		text = "⏳ " + clientErr.Message()
	}
	if clientErr.Kind == services.KindServiceError && clientErr.Body != "" {
		text += "\n\n" + clientErr.Body
	}
	if clientErr.Retryable() {
		text += "\n\n" + msgRetry
	}
	return text
}

func caption(record models.ResultRecord) string {
	mark := "🔴"
	if record.IsHealthy {
		mark = "🟢"
	}
	return fmt.Sprintf("%s %s\nDisease: %s\nConfidence: %s", mark, record.Crop, record.Disease, record.ConfidenceText)
}

func formatSummary(rows []models.SummaryRow) string {
	var sb strings.Builder
	sb.WriteString("📊 Summary\n")
	for i, row := range rows {
		box := row.Box
		if box == "" {
			box = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(&sb, "\n%s | %s | %s | %s", box, row.Crop, row.Disease, row.Confidence)
	}
	return sb.String()
}
