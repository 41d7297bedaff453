package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// PostgreSQLStorage implements Storage interface using PostgreSQL
type PostgreSQLStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgreSQLMigrations(),
	}
}

// Connect establishes database connection
func (s *PostgreSQLStorage) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (s *PostgreSQLStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgreSQLStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *PostgreSQLStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// Scheduled report operations

// SaveScheduledReport inserts or updates a scheduled report
func (s *PostgreSQLStorage) SaveScheduledReport(ctx context.Context, report *models.ScheduledReport) error {
	recipientsJSON, err := json.Marshal(report.Recipients)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal recipients", err.Error())
	}
	dashboardsJSON, err := json.Marshal(report.Dashboards)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal dashboards", err.Error())
	}

	query := `
		INSERT INTO scheduled_reports
		(id, name, frequency, time, recipients, dashboards, format, active,
		 last_run, next_run, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			frequency = EXCLUDED.frequency,
			time = EXCLUDED.time,
			recipients = EXCLUDED.recipients,
			dashboards = EXCLUDED.dashboards,
			format = EXCLUDED.format,
			active = EXCLUDED.active,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ID, report.Name, string(report.Frequency), report.Time,
		string(recipientsJSON), string(dashboardsJSON), string(report.Format),
		report.Active, report.LastRun, report.NextRun, report.CreatedAt, report.UpdatedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save scheduled report", err.Error())
	}

	return nil
}

// GetScheduledReport retrieves a scheduled report by ID
func (s *PostgreSQLStorage) GetScheduledReport(ctx context.Context, id string) (*models.ScheduledReport, error) {
	query := `SELECT ` + reportColumns + ` FROM scheduled_reports WHERE id = $1`

	report, err := scanReport(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Scheduled report not found", id)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get scheduled report", err.Error())
	}

	return report, nil
}

// GetScheduledReports retrieves all scheduled reports, newest first
func (s *PostgreSQLStorage) GetScheduledReports(ctx context.Context) ([]*models.ScheduledReport, error) {
	query := `SELECT ` + reportColumns + ` FROM scheduled_reports ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query scheduled reports", err.Error())
	}
	defer rows.Close()

	return collectReports(rows)
}

// GetDueReports retrieves active reports whose time-of-day matches timeOfDay
func (s *PostgreSQLStorage) GetDueReports(ctx context.Context, timeOfDay string) ([]*models.ScheduledReport, error) {
	query := `SELECT ` + reportColumns + ` FROM scheduled_reports WHERE active = TRUE AND time = $1`

	rows, err := s.db.QueryContext(ctx, query, timeOfDay)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query due reports", err.Error())
	}
	defer rows.Close()

	return collectReports(rows)
}

// SetReportActive updates the active flag of a report and returns the updated record
func (s *PostgreSQLStorage) SetReportActive(ctx context.Context, id string, active bool) (*models.ScheduledReport, error) {
	query := `UPDATE scheduled_reports SET active = $1, updated_at = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to update scheduled report", err.Error())
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read update result", err.Error())
	}
	if affected == 0 {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Scheduled report not found", id)
	}

	return s.GetScheduledReport(ctx, id)
}

// UpdateReportRuns advances last_run and next_run after a successful dispatch
func (s *PostgreSQLStorage) UpdateReportRuns(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	query := `UPDATE scheduled_reports SET last_run = $1, next_run = $2, updated_at = $3 WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query, lastRun, nextRun, time.Now().UTC(), id)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update report runs", err.Error())
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to read update result", err.Error())
	}
	if affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Scheduled report not found", id)
	}

	return nil
}

// Report log operations

// SaveReportLog appends a report execution log entry
func (s *PostgreSQLStorage) SaveReportLog(ctx context.Context, log *models.ReportLog) error {
	query := `
		INSERT INTO report_logs (id, report_id, status, recipients_count, error, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.ReportID, log.Status, log.RecipientsCount, log.Error, log.ExecutedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save report log", err.Error())
	}

	return nil
}

// GetReportLogs retrieves execution logs for a report, newest first
func (s *PostgreSQLStorage) GetReportLogs(ctx context.Context, reportID string, limit int) ([]*models.ReportLog, error) {
	query := `
		SELECT id, report_id, status, recipients_count, error, executed_at
		FROM report_logs WHERE report_id = $1
		ORDER BY executed_at DESC LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, reportID, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query report logs", err.Error())
	}
	defer rows.Close()

	var logs []*models.ReportLog
	for rows.Next() {
		log := &models.ReportLog{}
		if err := rows.Scan(&log.ID, &log.ReportID, &log.Status,
			&log.RecipientsCount, &log.Error, &log.ExecutedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan report log", err.Error())
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// Webhook operations

// SaveWebhook inserts or updates a webhook registration
func (s *PostgreSQLStorage) SaveWebhook(ctx context.Context, webhook *models.Webhook) error {
	triggersJSON, err := json.Marshal(webhook.Triggers)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal triggers", err.Error())
	}

	query := `
		INSERT INTO webhooks (id, name, url, triggers, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			triggers = EXCLUDED.triggers,
			active = EXCLUDED.active
	`

	_, err = s.db.ExecContext(ctx, query,
		webhook.ID, webhook.Name, webhook.URL, string(triggersJSON),
		webhook.Active, webhook.CreatedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save webhook", err.Error())
	}

	return nil
}

// GetWebhooks retrieves all webhooks, newest first
func (s *PostgreSQLStorage) GetWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	query := `SELECT id, name, url, triggers, active, created_at FROM webhooks ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query webhooks", err.Error())
	}
	defer rows.Close()

	return collectWebhooks(rows, "")
}

// GetWebhooksByTrigger retrieves active webhooks subscribed to eventType
func (s *PostgreSQLStorage) GetWebhooksByTrigger(ctx context.Context, eventType string) ([]*models.Webhook, error) {
	query := `SELECT id, name, url, triggers, active, created_at FROM webhooks WHERE active = TRUE`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query webhooks", err.Error())
	}
	defer rows.Close()

	return collectWebhooks(rows, eventType)
}

// SetWebhookActive updates the active flag of a webhook
func (s *PostgreSQLStorage) SetWebhookActive(ctx context.Context, id string, active bool) (*models.Webhook, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE webhooks SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to update webhook", err.Error())
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read update result", err.Error())
	}
	if affected == 0 {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Webhook not found", id)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, triggers, active, created_at FROM webhooks WHERE id = $1`, id)
	return scanWebhook(row)
}

// SaveWebhookLog appends a webhook delivery log entry
func (s *PostgreSQLStorage) SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (id, webhook_id, event_type, status, error, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.WebhookID, log.EventType, log.Status, log.Error, log.ExecutedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save webhook log", err.Error())
	}

	return nil
}

// GetWebhookLogs retrieves delivery logs for a webhook, newest first
func (s *PostgreSQLStorage) GetWebhookLogs(ctx context.Context, webhookID string, limit int) ([]*models.WebhookLog, error) {
	query := `
		SELECT id, webhook_id, event_type, status, error, executed_at
		FROM webhook_logs WHERE webhook_id = $1
		ORDER BY executed_at DESC LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, webhookID, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query webhook logs", err.Error())
	}
	defer rows.Close()

	var logs []*models.WebhookLog
	for rows.Next() {
		log := &models.WebhookLog{}
		if err := rows.Scan(&log.ID, &log.WebhookID, &log.EventType,
			&log.Status, &log.Error, &log.ExecutedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan webhook log", err.Error())
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// Slack integration operations

// SaveSlackIntegration inserts or updates a Slack integration
func (s *PostgreSQLStorage) SaveSlackIntegration(ctx context.Context, integration *models.SlackIntegration) error {
	alertTypesJSON, err := json.Marshal(integration.AlertTypes)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal alert types", err.Error())
	}

	query := `
		INSERT INTO slack_integrations (id, channel, webhook_url, alert_types, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			channel = EXCLUDED.channel,
			webhook_url = EXCLUDED.webhook_url,
			alert_types = EXCLUDED.alert_types,
			active = EXCLUDED.active
	`

	_, err = s.db.ExecContext(ctx, query,
		integration.ID, integration.Channel, integration.WebhookURL,
		string(alertTypesJSON), integration.Active, integration.CreatedAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save slack integration", err.Error())
	}

	return nil
}

// GetSlackIntegrations retrieves all Slack integrations, newest first
func (s *PostgreSQLStorage) GetSlackIntegrations(ctx context.Context) ([]*models.SlackIntegration, error) {
	query := `SELECT id, channel, webhook_url, alert_types, active, created_at
		FROM slack_integrations ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query slack integrations", err.Error())
	}
	defer rows.Close()

	return collectSlackIntegrations(rows, "")
}

// GetSlackIntegrationsByAlertType retrieves active integrations subscribed to alertType
func (s *PostgreSQLStorage) GetSlackIntegrationsByAlertType(ctx context.Context, alertType string) ([]*models.SlackIntegration, error) {
	query := `SELECT id, channel, webhook_url, alert_types, active, created_at
		FROM slack_integrations WHERE active = TRUE`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query slack integrations", err.Error())
	}
	defer rows.Close()

	return collectSlackIntegrations(rows, alertType)
}

// SetSlackIntegrationActive updates the active flag of a Slack integration
func (s *PostgreSQLStorage) SetSlackIntegrationActive(ctx context.Context, id string, active bool) (*models.SlackIntegration, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE slack_integrations SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to update slack integration", err.Error())
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read update result", err.Error())
	}
	if affected == 0 {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Slack integration not found", id)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel, webhook_url, alert_types, active, created_at FROM slack_integrations WHERE id = $1`, id)
	return scanSlackIntegration(row)
}

// SaveSlackLog appends a Slack delivery log entry
func (s *PostgreSQLStorage) SaveSlackLog(ctx context.Context, log *models.SlackLog) error {
	query := `
		INSERT INTO slack_logs (id, integration_id, alert_type, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.IntegrationID, log.AlertType, log.Status, log.Error, log.SentAt)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save slack log", err.Error())
	}

	return nil
}

// GetSlackLogs retrieves delivery logs for a Slack integration, newest first
func (s *PostgreSQLStorage) GetSlackLogs(ctx context.Context, integrationID string, limit int) ([]*models.SlackLog, error) {
	query := `
		SELECT id, integration_id, alert_type, status, error, sent_at
		FROM slack_logs WHERE integration_id = $1
		ORDER BY sent_at DESC LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, integrationID, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query slack logs", err.Error())
	}
	defer rows.Close()

	var logs []*models.SlackLog
	for rows.Next() {
		log := &models.SlackLog{}
		if err := rows.Scan(&log.ID, &log.IntegrationID, &log.AlertType,
			&log.Status, &log.Error, &log.SentAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan slack log", err.Error())
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// GetStorageStats returns storage statistics
func (s *PostgreSQLStorage) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM scheduled_reports`, &stats.TotalReports},
		{`SELECT COUNT(*) FROM scheduled_reports WHERE active = TRUE`, &stats.ActiveReports},
		{`SELECT COUNT(*) FROM report_logs`, &stats.TotalReportLogs},
		{`SELECT COUNT(*) FROM webhooks`, &stats.TotalWebhooks},
		{`SELECT COUNT(*) FROM webhook_logs`, &stats.TotalWebhookLogs},
		{`SELECT COUNT(*) FROM slack_integrations`, &stats.TotalSlackIntegrations},
		{`SELECT COUNT(*) FROM slack_logs`, &stats.TotalSlackLogs},
	}

	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to collect storage stats", err.Error())
		}
	}

	return stats, nil
}
