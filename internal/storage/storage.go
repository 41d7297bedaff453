package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/report-dispatcher/internal/models"
)

// Storage defines the interface for dispatch state persistence
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Scheduled report operations
	SaveScheduledReport(ctx context.Context, report *models.ScheduledReport) error
	GetScheduledReport(ctx context.Context, id string) (*models.ScheduledReport, error)
	GetScheduledReports(ctx context.Context) ([]*models.ScheduledReport, error)
	GetDueReports(ctx context.Context, timeOfDay string) ([]*models.ScheduledReport, error)
	SetReportActive(ctx context.Context, id string, active bool) (*models.ScheduledReport, error)
	UpdateReportRuns(ctx context.Context, id string, lastRun, nextRun time.Time) error

	// Report log operations
	SaveReportLog(ctx context.Context, log *models.ReportLog) error
	GetReportLogs(ctx context.Context, reportID string, limit int) ([]*models.ReportLog, error)

	// Webhook operations
	SaveWebhook(ctx context.Context, webhook *models.Webhook) error
	GetWebhooks(ctx context.Context) ([]*models.Webhook, error)
	GetWebhooksByTrigger(ctx context.Context, eventType string) ([]*models.Webhook, error)
	SetWebhookActive(ctx context.Context, id string, active bool) (*models.Webhook, error)
	SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error
	GetWebhookLogs(ctx context.Context, webhookID string, limit int) ([]*models.WebhookLog, error)

	// Slack integration operations
	SaveSlackIntegration(ctx context.Context, integration *models.SlackIntegration) error
	GetSlackIntegrations(ctx context.Context) ([]*models.SlackIntegration, error)
	GetSlackIntegrationsByAlertType(ctx context.Context, alertType string) ([]*models.SlackIntegration, error)
	SetSlackIntegrationActive(ctx context.Context, id string, active bool) (*models.SlackIntegration, error)
	SaveSlackLog(ctx context.Context, log *models.SlackLog) error
	GetSlackLogs(ctx context.Context, integrationID string, limit int) ([]*models.SlackLog, error)

	// Statistics
	GetStorageStats() (*StorageStats, error)
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalReports           int64 `json:"total_reports"`
	ActiveReports          int64 `json:"active_reports"`
	TotalReportLogs        int64 `json:"total_report_logs"`
	TotalWebhooks          int64 `json:"total_webhooks"`
	TotalWebhookLogs       int64 `json:"total_webhook_logs"`
	TotalSlackIntegrations int64 `json:"total_slack_integrations"`
	TotalSlackLogs         int64 `json:"total_slack_logs"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
