package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/qepting91/mikubot/internal/domain"
)

var permissionPhrases = []string{
	"not enough rights",
	"have no rights",
	"chat not found",
}

// Telegram posts photos through the Bot API, retrying transient failures.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	retry  retrypolicy.RetryPolicy[any]
	logger *slog.Logger
}

type TelegramConfig struct {
	Token    string
	Endpoint string
	Timeout  time.Duration

	// MaxRetries and BaseDelay tune the retry policy. Zero means the
	// defaults; a negative MaxRetries disables retries.
	MaxRetries int
	BaseDelay  time.Duration

	Client *http.Client
	Logger *slog.Logger
}

// NewTelegram validates the token with getMe before returning.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 2
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", classify(err))
	}

	retry := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return isTransient(err) }).
		WithMaxRetries(cfg.MaxRetries).
		WithBackoff(cfg.BaseDelay, 10*cfg.BaseDelay).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.Warn("Retrying telegram request", "attempt", e.Attempts(), "err", e.LastError())
		}).
		Build()

	logger.Info("Connected to telegram", "bot", bot.Self.UserName)
	return &Telegram{bot: bot, retry: retry, logger: logger}, nil
}

func (t *Telegram) BotName() string { return t.bot.Self.UserName }

// Deliver sends the record's image by URL with the formatted caption.
func (t *Telegram) Deliver(ctx context.Context, channel string, rec domain.ContentRecord) error {
	if channel == "" {
		return errors.New("no channel configured")
	}
	if rec.ImageURL == "" {
		return errors.New("record has no image url")
	}

	photo := newPhoto(channel, tgbotapi.FileURL(rec.ImageURL))
	photo.Caption = FormatCaption(rec)

	err := failsafe.With(t.retry).WithContext(ctx).Run(func() error {
		_, err := t.bot.Send(photo)
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("sending photo: %w", err)
	}

	t.logger.Info("Posted content", "channel", channel, "image_url", truncate(rec.ImageURL, 30))
	return nil
}

// CheckConflict reports whether another process is already polling updates
// for this bot. Telegram answers getUpdates with 409 in that case.
func (t *Telegram) CheckConflict(_ context.Context) (bool, error) {
	_, err := t.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err == nil {
		return false, nil
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == http.StatusConflict {
		return true, nil
	}
	return false, fmt.Errorf("probing getUpdates: %w", err)
}

func newPhoto(channel string, file tgbotapi.RequestFileData) tgbotapi.PhotoConfig {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.NewPhoto(id, file)
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return tgbotapi.NewPhotoToChannel(channel, file)
}

// classify wraps Bot API permission failures in ErrPermission.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return err
	}
	if tgErr.Code == http.StatusForbidden || isPermissionMessage(tgErr.Message) {
		return fmt.Errorf("%w: %s", ErrPermission, tgErr.Message)
	}
	return err
}

func isPermissionMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, phrase := range permissionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// isTransient reports whether a retry could succeed: network failures,
// rate limiting and server errors. Bad requests and permission problems
// fail the same way every time.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, ErrPermission) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusTooManyRequests || tgErr.Code >= 500
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
