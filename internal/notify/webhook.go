package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// WebhookPayload is the envelope POSTed to registered webhooks
type WebhookPayload struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	WebhookID string                 `json:"webhook_id"`
}

// WebhookClient POSTs JSON payloads to webhook endpoints
type WebhookClient struct {
	config     *config.DispatchConfig
	logger     *logrus.Logger
	httpClient *http.Client
}

// NewWebhookClient creates a new webhook client
func NewWebhookClient(cfg *config.DispatchConfig) *WebhookClient {
	return &WebhookClient{
		config: cfg,
		logger: utils.GetLogger(),
		httpClient: &http.Client{
			Timeout: cfg.DeliveryTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Post sends payload to url. Returns the HTTP status code, or 0 with a
// non-nil error when the request never reached the endpoint.
func (c *WebhookClient) Post(ctx context.Context, url string, payload interface{}) (int, error) {
	startTime := time.Now()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeInternal, "Failed to create request", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	entry := c.logger.WithFields(logrus.Fields{
		"url":         url,
		"duration_ms": duration.Milliseconds(),
	})

	if err != nil {
		entry.WithField("error", err.Error()).Error("Webhook delivery failed")
		return 0, utils.NewAppError(utils.ErrCodeDelivery, "Failed to deliver webhook", err.Error())
	}
	defer resp.Body.Close()

	entry = entry.WithField("status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		entry.Warn("Webhook returned non-success status")
		return resp.StatusCode, utils.NewAppError(utils.ErrCodeDelivery,
			"Webhook returned non-success status", fmt.Sprintf("status: %d", resp.StatusCode))
	}

	entry.Debug("Webhook delivered")
	return resp.StatusCode, nil
}
