// Package delivery sends content records to the channel.
package delivery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/qepting91/mikubot/internal/domain"
)

// ErrPermission means the bot is not allowed to post in the channel. It is
// never retried; an operator has to fix the channel settings.
var ErrPermission = errors.New("bot lacks permission to post in the channel")

// PermissionHint is logged next to ErrPermission.
const PermissionHint = "add the bot to the channel as an administrator with the 'Post Messages' right"

type Deliverer interface {
	Deliver(ctx context.Context, channel string, rec domain.ContentRecord) error
}

// LogDeliverer only logs what it would post. Used for dry runs and when no
// bot token is configured.
type LogDeliverer struct {
	Logger *slog.Logger
}

func (d LogDeliverer) Deliver(_ context.Context, channel string, rec domain.ContentRecord) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Dry run: would post",
		"channel", channel,
		"image_url", rec.ImageURL,
		"source", rec.Source,
		"caption", FormatCaption(rec),
	)
	return nil
}
