package models

import "time"

// Webhook is a registered outbound webhook endpoint with its trigger set.
type Webhook struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	Triggers  []string  `json:"triggers" db:"triggers"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Subscribed reports whether the webhook's trigger set contains eventType.
func (w *Webhook) Subscribed(eventType string) bool {
	for _, t := range w.Triggers {
		if t == eventType {
			return true
		}
	}
	return false
}

// WebhookLog records one delivery attempt to a webhook.
// Status is the HTTP status code, or 0 for a transport failure.
type WebhookLog struct {
	ID         string    `json:"id" db:"id"`
	WebhookID  string    `json:"webhook_id" db:"webhook_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	Status     int       `json:"status" db:"status"`
	Error      *string   `json:"error,omitempty" db:"error"`
	ExecutedAt time.Time `json:"executed_at" db:"executed_at"`
}

// SlackIntegration is a registered Slack incoming-webhook channel with
// the alert types it has opted into.
type SlackIntegration struct {
	ID         string    `json:"id" db:"id"`
	Channel    string    `json:"channel" db:"channel"`
	WebhookURL string    `json:"webhook_url" db:"webhook_url"`
	AlertTypes []string  `json:"alert_types" db:"alert_types"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Subscribed reports whether the integration's alert-type set contains alertType.
func (s *SlackIntegration) Subscribed(alertType string) bool {
	for _, t := range s.AlertTypes {
		if t == alertType {
			return true
		}
	}
	return false
}

// SlackLog records one Slack delivery attempt.
type SlackLog struct {
	ID            string    `json:"id" db:"id"`
	IntegrationID string    `json:"integration_id" db:"integration_id"`
	AlertType     string    `json:"alert_type" db:"alert_type"`
	Status        int       `json:"status" db:"status"`
	Error         *string   `json:"error,omitempty" db:"error"`
	SentAt        time.Time `json:"sent_at" db:"sent_at"`
}

// DeliveryResult is the per-integration outcome of one fan-out dispatch.
type DeliveryResult struct {
	IntegrationID string `json:"integration_id"`
	StatusCode    int    `json:"status_code"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// DispatchResult aggregates one fan-out dispatch.
type DispatchResult struct {
	Triggered int              `json:"triggered"`
	Results   []DeliveryResult `json:"results"`
}
