package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/report-dispatcher/internal/metrics"
	"github.com/smartdevs17/report-dispatcher/internal/models"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Storage
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(storage Storage, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage:        storage,
		metricsManager: metricsManager,
	}
}

func (s *StorageWithMetrics) record(operation, table string, start time.Time, err error) {
	if s.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(operation, table, status, time.Since(start))
}

func (s *StorageWithMetrics) SaveScheduledReport(ctx context.Context, report *models.ScheduledReport) error {
	start := time.Now()
	err := s.Storage.SaveScheduledReport(ctx, report)
	s.record("upsert", "scheduled_reports", start, err)
	return err
}

func (s *StorageWithMetrics) GetDueReports(ctx context.Context, timeOfDay string) ([]*models.ScheduledReport, error) {
	start := time.Now()
	reports, err := s.Storage.GetDueReports(ctx, timeOfDay)
	s.record("select", "scheduled_reports", start, err)
	return reports, err
}

func (s *StorageWithMetrics) SetReportActive(ctx context.Context, id string, active bool) (*models.ScheduledReport, error) {
	start := time.Now()
	report, err := s.Storage.SetReportActive(ctx, id, active)
	s.record("update", "scheduled_reports", start, err)
	return report, err
}

func (s *StorageWithMetrics) UpdateReportRuns(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	start := time.Now()
	err := s.Storage.UpdateReportRuns(ctx, id, lastRun, nextRun)
	s.record("update", "scheduled_reports", start, err)
	return err
}

func (s *StorageWithMetrics) SaveReportLog(ctx context.Context, log *models.ReportLog) error {
	start := time.Now()
	err := s.Storage.SaveReportLog(ctx, log)
	s.record("insert", "report_logs", start, err)
	return err
}

func (s *StorageWithMetrics) SaveWebhook(ctx context.Context, webhook *models.Webhook) error {
	start := time.Now()
	err := s.Storage.SaveWebhook(ctx, webhook)
	s.record("upsert", "webhooks", start, err)
	return err
}

func (s *StorageWithMetrics) SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	start := time.Now()
	err := s.Storage.SaveWebhookLog(ctx, log)
	s.record("insert", "webhook_logs", start, err)
	return err
}

func (s *StorageWithMetrics) SaveSlackIntegration(ctx context.Context, integration *models.SlackIntegration) error {
	start := time.Now()
	err := s.Storage.SaveSlackIntegration(ctx, integration)
	s.record("upsert", "slack_integrations", start, err)
	return err
}

func (s *StorageWithMetrics) SaveSlackLog(ctx context.Context, log *models.SlackLog) error {
	start := time.Now()
	err := s.Storage.SaveSlackLog(ctx, log)
	s.record("insert", "slack_logs", start, err)
	return err
}
