package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	cfg := &StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "dispatch_test.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	}

	store := NewSQLiteStorage(cfg)
	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleReport(id, name string) *models.ScheduledReport {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.ScheduledReport{
		ID:         id,
		Name:       name,
		Frequency:  models.FrequencyDaily,
		Time:       "09:00",
		Recipients: []string{"analyst@example.com", "ops@example.com"},
		Dashboards: []string{"overview", "revenue"},
		Format:     models.FormatPDF,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestScheduledReportRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rec := sampleReport("r1", "Daily Overview")
	require.NoError(t, store.SaveScheduledReport(ctx, rec))

	got, err := store.GetScheduledReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Frequency, got.Frequency)
	assert.Equal(t, rec.Time, got.Time)
	assert.Equal(t, rec.Recipients, got.Recipients)
	assert.Equal(t, rec.Dashboards, got.Dashboards)
	assert.True(t, got.Active)
	assert.Nil(t, got.LastRun)
	assert.Nil(t, got.NextRun)
}

func TestGetScheduledReportNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetScheduledReport(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}

func TestGetScheduledReportsNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	older := sampleReport("r1", "Older")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := sampleReport("r2", "Newer")

	require.NoError(t, store.SaveScheduledReport(ctx, older))
	require.NoError(t, store.SaveScheduledReport(ctx, newer))

	reports, err := store.GetScheduledReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
	assert.Equal(t, "r1", reports[1].ID)
}

func TestGetDueReportsMatchesTimeAndActive(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	due := sampleReport("due", "Matches")
	offTime := sampleReport("off-time", "Different slot")
	offTime.Time = "10:30"
	inactive := sampleReport("inactive", "Paused")
	inactive.Active = false

	for _, r := range []*models.ScheduledReport{due, offTime, inactive} {
		require.NoError(t, store.SaveScheduledReport(ctx, r))
	}

	reports, err := store.GetDueReports(ctx, "09:00")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "due", reports[0].ID)
}

func TestSetReportActive(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveScheduledReport(ctx, sampleReport("r1", "Toggle")))

	updated, err := store.SetReportActive(ctx, "r1", false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	// Deactivated reports drop out of the due query
	reports, err := store.GetDueReports(ctx, "09:00")
	require.NoError(t, err)
	assert.Empty(t, reports)

	_, err = store.SetReportActive(ctx, "missing", true)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}

func TestUpdateReportRuns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveScheduledReport(ctx, sampleReport("r1", "Runs")))

	lastRun := time.Now().UTC().Truncate(time.Second)
	nextRun := lastRun.Add(24 * time.Hour)
	require.NoError(t, store.UpdateReportRuns(ctx, "r1", lastRun, nextRun))

	got, err := store.GetScheduledReport(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	require.NotNil(t, got.NextRun)
	assert.True(t, got.LastRun.Equal(lastRun))
	assert.True(t, got.NextRun.Equal(nextRun))

	err = store.UpdateReportRuns(ctx, "missing", lastRun, nextRun)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}

func TestReportLogsNewestFirstWithLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveScheduledReport(ctx, sampleReport("r1", "Logged")))

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		errMsg := "render failed"
		log := &models.ReportLog{
			ID:         utils.MustGenerateID(),
			ReportID:   "r1",
			Status:     models.RunStatusSuccess,
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 2 {
			log.Status = models.RunStatusFailed
			log.Error = &errMsg
		}
		require.NoError(t, store.SaveReportLog(ctx, log))
	}

	logs, err := store.GetReportLogs(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].ExecutedAt.After(logs[1].ExecutedAt))
	assert.True(t, logs[1].ExecutedAt.After(logs[2].ExecutedAt))

	// The failed row carries its error message
	assert.Equal(t, models.RunStatusFailed, logs[2].Status)
	require.NotNil(t, logs[2].Error)
	assert.Equal(t, "render failed", *logs[2].Error)
}

func TestWebhookTriggerFiltering(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	hooks := []*models.Webhook{
		{ID: "w1", Name: "reports", URL: "https://a.example/hook", Triggers: []string{"report_generated"}, Active: true, CreatedAt: now},
		{ID: "w2", Name: "everything", URL: "https://b.example/hook", Triggers: []string{"report_generated", "alert_triggered"}, Active: true, CreatedAt: now},
		{ID: "w3", Name: "paused", URL: "https://c.example/hook", Triggers: []string{"report_generated"}, Active: false, CreatedAt: now},
		{ID: "w4", Name: "other", URL: "https://d.example/hook", Triggers: []string{"alert_triggered"}, Active: true, CreatedAt: now},
	}
	for _, h := range hooks {
		require.NoError(t, store.SaveWebhook(ctx, h))
	}

	matched, err := store.GetWebhooksByTrigger(ctx, "report_generated")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	ids := []string{matched[0].ID, matched[1].ID}
	assert.ElementsMatch(t, []string{"w1", "w2"}, ids)

	all, err := store.GetWebhooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestWebhookLogRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SaveWebhook(ctx, &models.Webhook{
		ID: "w1", Name: "hook", URL: "https://a.example", Triggers: []string{"evt"}, Active: true, CreatedAt: now,
	}))

	transportErr := "connection refused"
	logs := []*models.WebhookLog{
		{ID: utils.MustGenerateID(), WebhookID: "w1", EventType: "evt", Status: 200, ExecutedAt: now},
		{ID: utils.MustGenerateID(), WebhookID: "w1", EventType: "evt", Status: 0, Error: &transportErr, ExecutedAt: now.Add(time.Minute)},
	}
	for _, l := range logs {
		require.NoError(t, store.SaveWebhookLog(ctx, l))
	}

	got, err := store.GetWebhookLogs(ctx, "w1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first: the transport failure with status 0
	assert.Equal(t, 0, got[0].Status)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, transportErr, *got[0].Error)
	assert.Equal(t, 200, got[1].Status)
}

func TestSlackIntegrationFiltering(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	integrations := []*models.SlackIntegration{
		{ID: "s1", Channel: "#alerts", WebhookURL: "https://hooks.slack.com/a", AlertTypes: []string{"threshold_breached", "anomaly_detected"}, Active: true, CreatedAt: now},
		{ID: "s2", Channel: "#wins", WebhookURL: "https://hooks.slack.com/b", AlertTypes: []string{"goal_achieved"}, Active: true, CreatedAt: now},
		{ID: "s3", Channel: "#muted", WebhookURL: "https://hooks.slack.com/c", AlertTypes: []string{"threshold_breached"}, Active: false, CreatedAt: now},
	}
	for _, i := range integrations {
		require.NoError(t, store.SaveSlackIntegration(ctx, i))
	}

	matched, err := store.GetSlackIntegrationsByAlertType(ctx, "threshold_breached")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "s1", matched[0].ID)
	assert.Equal(t, "#alerts", matched[0].Channel)

	updated, err := store.SetSlackIntegrationActive(ctx, "s3", true)
	require.NoError(t, err)
	assert.True(t, updated.Active)

	matched, err = store.GetSlackIntegrationsByAlertType(ctx, "threshold_breached")
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestGetStorageStats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveScheduledReport(ctx, sampleReport("r1", "One")))
	inactive := sampleReport("r2", "Two")
	inactive.Active = false
	require.NoError(t, store.SaveScheduledReport(ctx, inactive))

	require.NoError(t, store.SaveReportLog(ctx, &models.ReportLog{
		ID: utils.MustGenerateID(), ReportID: "r1", Status: models.RunStatusSuccess, ExecutedAt: time.Now().UTC(),
	}))

	stats, err := store.GetStorageStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalReports)
	assert.Equal(t, int64(1), stats.ActiveReports)
	assert.Equal(t, int64(1), stats.TotalReportLogs)
}
