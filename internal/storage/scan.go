package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// rowScanner abstracts *sql.Row and *sql.Rows so scan helpers can be
// shared between the SQLite and PostgreSQL backends.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.ScheduledReport, error) {
	report := &models.ScheduledReport{}
	var recipientsJSON, dashboardsJSON string
	var frequency, format string
	var lastRun, nextRun sql.NullTime

	err := row.Scan(&report.ID, &report.Name, &frequency, &report.Time,
		&recipientsJSON, &dashboardsJSON, &format, &report.Active,
		&lastRun, &nextRun, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, err
	}

	report.Frequency = models.Frequency(frequency)
	report.Format = models.ReportFormat(format)
	if lastRun.Valid {
		t := lastRun.Time
		report.LastRun = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		report.NextRun = &t
	}

	if err := json.Unmarshal([]byte(recipientsJSON), &report.Recipients); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dashboardsJSON), &report.Dashboards); err != nil {
		return nil, err
	}

	return report, nil
}

func collectReports(rows *sql.Rows) ([]*models.ScheduledReport, error) {
	var reports []*models.ScheduledReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan scheduled report", err.Error())
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanWebhook(row rowScanner) (*models.Webhook, error) {
	webhook := &models.Webhook{}
	var triggersJSON string

	err := row.Scan(&webhook.ID, &webhook.Name, &webhook.URL,
		&triggersJSON, &webhook.Active, &webhook.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(triggersJSON), &webhook.Triggers); err != nil {
		return nil, err
	}

	return webhook, nil
}

// collectWebhooks scans all rows; when eventType is non-empty, only
// webhooks whose trigger set contains it are returned.
func collectWebhooks(rows *sql.Rows, eventType string) ([]*models.Webhook, error) {
	var webhooks []*models.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan webhook", err.Error())
		}
		if eventType != "" && !webhook.Subscribed(eventType) {
			continue
		}
		webhooks = append(webhooks, webhook)
	}
	return webhooks, rows.Err()
}

func scanSlackIntegration(row rowScanner) (*models.SlackIntegration, error) {
	integration := &models.SlackIntegration{}
	var alertTypesJSON string

	err := row.Scan(&integration.ID, &integration.Channel, &integration.WebhookURL,
		&alertTypesJSON, &integration.Active, &integration.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(alertTypesJSON), &integration.AlertTypes); err != nil {
		return nil, err
	}

	return integration, nil
}

func collectSlackIntegrations(rows *sql.Rows, alertType string) ([]*models.SlackIntegration, error) {
	var integrations []*models.SlackIntegration
	for rows.Next() {
		integration, err := scanSlackIntegration(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan slack integration", err.Error())
		}
		if alertType != "" && !integration.Subscribed(alertType) {
			continue
		}
		integrations = append(integrations, integration)
	}
	return integrations, rows.Err()
}
