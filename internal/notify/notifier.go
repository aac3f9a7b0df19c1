package notify

import (
	"context"
	"fmt"

	"github.com/cryptosim/cryptosim/internal/config"
	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
	"resty.dev/v3"
)

// WebhookNotifier posts triggered-alert messages to a configured endpoint.
// The delivery pipeline behind that endpoint (email, push) is somebody
// else's problem.
type WebhookNotifier struct {
	c      *resty.Client
	logger logger.Logger
}

func NewWebhookNotifier(cfg config.NotifierConfig, logger logger.Logger) *WebhookNotifier {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.WebhookURL).
		SetTimeout(cfg.Timeout)

	return &WebhookNotifier{
		c:      client,
		logger: logger,
	}
}

type alertMessage struct {
	UserID       string `json:"user_id"`
	Symbol       string `json:"symbol"`
	CurrentPrice string `json:"current_price"`
	AlertID      string `json:"alert_id"`
	Kind         string `json:"kind"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, userID, symbol string, currentPrice decimal.Decimal, a model.Alert) error {
	msg := alertMessage{
		UserID:       userID,
		Symbol:       symbol,
		CurrentPrice: currentPrice.String(),
		AlertID:      a.ID,
		Kind:         string(a.Kind),
	}

	resp, err := n.c.R().
		SetBody(msg).
		SetContext(ctx).
		Post("")
	if err != nil {
		return fmt.Errorf("%w: can't send notification", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("notification rejected: %s", resp.Status())
	}

	n.logger.Debugf("notification for alert %s delivered in %s", a.ID, resp.Duration())
	return nil
}

// LogNotifier writes the notification to the log. Used when no webhook is
// configured, typically in local runs.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(logger logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID, symbol string, currentPrice decimal.Decimal, a model.Alert) error {
	n.logger.Infof("alert %s for user %s: %s reached %s", a.ID, userID, symbol, currentPrice)
	return nil
}
