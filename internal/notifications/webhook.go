package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nsescan/breakout-backend/internal/httputil"
	"go.uber.org/zap"
)

// Sender posts screener notifications (scan summaries, new breakouts) to a
// Slack/Discord-style webhook. With no URL configured it only logs.
type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *zap.Logger
}

func NewSender(webhookURL, botName string, logger *zap.Logger) *Sender {
	if botName == "" {
		botName = "BreakoutScreener"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	s.logger.Info("notification", zap.String("message", formatted))

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("notification marshal failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.logger.Error("notification delivery failed after retries", zap.Error(err))
		return
	}
	resp.Body.Close()
}

// SendScanSummary formats and sends the outcome of a completed scan.
func (s *Sender) SendScanSummary(total int, breakouts []string) {
	if len(breakouts) == 0 {
		s.Send(fmt.Sprintf("Scan complete: 0 breakouts across %d symbols", total))
		return
	}
	s.Send(fmt.Sprintf("Scan complete: %d breakouts across %d symbols: %s",
		len(breakouts), total, strings.Join(breakouts, ", ")))
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
