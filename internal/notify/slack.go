package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smartdevs17/report-dispatcher/internal/config"
)

// Alert types recognized by the Slack color mapping
const (
	AlertThresholdBreached = "threshold_breached"
	AlertAnomalyDetected   = "anomaly_detected"
	AlertGoalAchieved      = "goal_achieved"
)

// SlackMessage is the incoming-webhook message body
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment is one message attachment
type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []SlackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

// SlackField is a short key/value pair inside an attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackClient builds and posts Slack alert messages
type SlackClient struct {
	webhooks *WebhookClient
	now      func() time.Time
}

// NewSlackClient creates a new Slack client sharing the webhook transport
func NewSlackClient(cfg *config.DispatchConfig, now func() time.Time) *SlackClient {
	if now == nil {
		now = time.Now
	}
	return &SlackClient{
		webhooks: NewWebhookClient(cfg),
		now:      now,
	}
}

// BuildAlertMessage builds the Slack message for one alert delivery
func (c *SlackClient) BuildAlertMessage(channel, alertType, title, text string, data map[string]interface{}) *SlackMessage {
	now := c.now()

	fields := []SlackField{
		{Title: "Alert Type", Value: alertType, Short: true},
		{Title: "Timestamp", Value: now.Format(time.RFC1123), Short: true},
	}

	// Flatten data into additional fields, deterministically ordered
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fields = append(fields, SlackField{
			Title: strings.ToUpper(strings.ReplaceAll(key, "_", " ")),
			Value: fmt.Sprintf("%v", data[key]),
			Short: true,
		})
	}

	return &SlackMessage{
		Channel:   channel,
		Username:  "Analytics Bot",
		IconEmoji: ":chart_with_upwards_trend:",
		Attachments: []SlackAttachment{
			{
				Color:  AlertColor(alertType),
				Title:  title,
				Text:   text,
				Fields: fields,
				Footer: "Analytics Dashboard",
				Ts:     now.Unix(),
			},
		},
	}
}

// Post delivers a Slack message to webhookURL. Returns the HTTP status
// code, or 0 with a non-nil error on transport failure.
func (c *SlackClient) Post(ctx context.Context, webhookURL string, msg *SlackMessage) (int, error) {
	return c.webhooks.Post(ctx, webhookURL, msg)
}

// AlertColor maps an alert type to a Slack attachment color
func AlertColor(alertType string) string {
	switch alertType {
	case AlertThresholdBreached:
		return "danger"
	case AlertAnomalyDetected:
		return "warning"
	case AlertGoalAchieved:
		return "good"
	default:
		return "#36a64f"
	}
}
