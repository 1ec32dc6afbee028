package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
)

// LogSink records alert deliveries in the service log. Default when no
// delivery endpoint is configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, user *domain.User, a *domain.RiskAlert) error {
	s.logger.Info("caregiver alert",
		zap.String("user_id", user.ID.String()),
		zap.String("level", string(a.Level)),
		zap.String("title", a.Title),
		zap.Bool("alert_caregiver", a.AlertCaregiver),
	)
	return nil
}

// WebhookSink POSTs the alert payload to a configured endpoint. Delivery
// transport behind the endpoint (email, push, SMS) is not this service's
// concern.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type webhookPayload struct {
	UserID   string            `json:"user_id"`
	UserName string            `json:"user_name"`
	Alert    *domain.RiskAlert `json:"alert"`
}

func (s *WebhookSink) Deliver(ctx context.Context, user *domain.User, a *domain.RiskAlert) error {
	body, err := json.Marshal(webhookPayload{
		UserID:   user.ID.String(),
		UserName: user.Name,
		Alert:    a,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alert delivery failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}

	s.logger.Info("caregiver alert delivered",
		zap.String("user_id", user.ID.String()),
		zap.String("level", string(a.Level)),
	)
	return nil
}
