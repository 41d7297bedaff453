package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/internal/storage"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// integrationStore implements storage.Storage with canned webhook and
// Slack rows and records the delivery logs the dispatcher writes.
type integrationStore struct {
	mu           sync.Mutex
	webhooks     []*models.Webhook
	integrations []*models.SlackIntegration
	webhookLogs  []*models.WebhookLog
	slackLogs    []*models.SlackLog
	readErr      error
}

func (s *integrationStore) Connect() error { return nil }
func (s *integrationStore) Close() error   { return nil }
func (s *integrationStore) Ping() error    { return nil }
func (s *integrationStore) Migrate() error { return nil }

func (s *integrationStore) SaveScheduledReport(ctx context.Context, r *models.ScheduledReport) error {
	return nil
}
func (s *integrationStore) GetScheduledReport(ctx context.Context, id string) (*models.ScheduledReport, error) {
	return nil, utils.NewAppError(utils.ErrCodeNotFound, "not found", "")
}
func (s *integrationStore) GetScheduledReports(ctx context.Context) ([]*models.ScheduledReport, error) {
	return nil, nil
}
func (s *integrationStore) GetDueReports(ctx context.Context, timeOfDay string) ([]*models.ScheduledReport, error) {
	return nil, nil
}
func (s *integrationStore) SetReportActive(ctx context.Context, id string, active bool) (*models.ScheduledReport, error) {
	return nil, utils.NewAppError(utils.ErrCodeNotFound, "not found", "")
}
func (s *integrationStore) UpdateReportRuns(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	return nil
}
func (s *integrationStore) SaveReportLog(ctx context.Context, log *models.ReportLog) error {
	return nil
}
func (s *integrationStore) GetReportLogs(ctx context.Context, reportID string, limit int) ([]*models.ReportLog, error) {
	return nil, nil
}

func (s *integrationStore) SaveWebhook(ctx context.Context, w *models.Webhook) error { return nil }
func (s *integrationStore) GetWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	return s.webhooks, nil
}
func (s *integrationStore) GetWebhooksByTrigger(ctx context.Context, eventType string) ([]*models.Webhook, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var matched []*models.Webhook
	for _, w := range s.webhooks {
		if w.Active && w.Subscribed(eventType) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}
func (s *integrationStore) SetWebhookActive(ctx context.Context, id string, active bool) (*models.Webhook, error) {
	return nil, utils.NewAppError(utils.ErrCodeNotFound, "not found", "")
}
func (s *integrationStore) SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhookLogs = append(s.webhookLogs, log)
	return nil
}
func (s *integrationStore) GetWebhookLogs(ctx context.Context, webhookID string, limit int) ([]*models.WebhookLog, error) {
	return s.webhookLogs, nil
}

func (s *integrationStore) SaveSlackIntegration(ctx context.Context, i *models.SlackIntegration) error {
	return nil
}
func (s *integrationStore) GetSlackIntegrations(ctx context.Context) ([]*models.SlackIntegration, error) {
	return s.integrations, nil
}
func (s *integrationStore) GetSlackIntegrationsByAlertType(ctx context.Context, alertType string) ([]*models.SlackIntegration, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var matched []*models.SlackIntegration
	for _, i := range s.integrations {
		if i.Active && i.Subscribed(alertType) {
			matched = append(matched, i)
		}
	}
	return matched, nil
}
func (s *integrationStore) SetSlackIntegrationActive(ctx context.Context, id string, active bool) (*models.SlackIntegration, error) {
	return nil, utils.NewAppError(utils.ErrCodeNotFound, "not found", "")
}
func (s *integrationStore) SaveSlackLog(ctx context.Context, log *models.SlackLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slackLogs = append(s.slackLogs, log)
	return nil
}
func (s *integrationStore) GetSlackLogs(ctx context.Context, integrationID string, limit int) ([]*models.SlackLog, error) {
	return s.slackLogs, nil
}

func (s *integrationStore) GetStorageStats() (*storage.StorageStats, error) {
	return &storage.StorageStats{}, nil
}

func newTestDispatcher(store storage.Storage) *Dispatcher {
	cfg := &config.DispatchConfig{
		MaxConcurrent:   4,
		DeliveryTimeout: 5 * time.Second,
		UserAgent:       "Report-Dispatcher/1.0",
	}
	return NewDispatcher(cfg, store, nil)
}

func webhook(id, url string, triggers ...string) *models.Webhook {
	return &models.Webhook{
		ID:       id,
		Name:     "hook-" + id,
		URL:      url,
		Triggers: triggers,
		Active:   true,
	}
}

func TestTriggerWebhooksDeliversToSubscribers(t *testing.T) {
	var mu sync.Mutex
	received := make(map[string]notifyPayload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload notifyPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		received[payload.WebhookID] = payload
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := &integrationStore{webhooks: []*models.Webhook{
		webhook("w1", srv.URL, "report_generated"),
		webhook("w2", srv.URL, "report_generated", "alert_triggered"),
		webhook("w3", srv.URL, "alert_triggered"),
	}}
	d := newTestDispatcher(store)

	result, err := d.TriggerWebhooks(context.Background(), "report_generated", map[string]interface{}{"report_id": "r1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Triggered)
	require.Len(t, result.Results, 2)
	for _, dr := range result.Results {
		assert.True(t, dr.Success)
		assert.Equal(t, http.StatusOK, dr.StatusCode)
	}

	// Non-subscribed endpoint never contacted
	assert.Len(t, received, 2)
	assert.NotContains(t, received, "w3")
	assert.Equal(t, "report_generated", received["w1"].Event)

	// One log row per attempted delivery
	require.Len(t, store.webhookLogs, 2)
	for _, l := range store.webhookLogs {
		assert.Equal(t, http.StatusOK, l.Status)
		assert.Nil(t, l.Error)
	}
}

type notifyPayload struct {
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	WebhookID string                 `json:"webhook_id"`
}

func TestTriggerWebhooksRecordsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &integrationStore{webhooks: []*models.Webhook{
		webhook("w1", srv.URL, "report_generated"),
	}}
	d := newTestDispatcher(store)

	result, err := d.TriggerWebhooks(context.Background(), "report_generated", nil)
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, http.StatusInternalServerError, result.Results[0].StatusCode)

	require.Len(t, store.webhookLogs, 1)
	assert.Equal(t, http.StatusInternalServerError, store.webhookLogs[0].Status)
	require.NotNil(t, store.webhookLogs[0].Error)
}

func TestTriggerWebhooksTransportFailureLoggedAsZero(t *testing.T) {
	// Point at a server that is already closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	store := &integrationStore{webhooks: []*models.Webhook{
		webhook("w1", url, "report_generated"),
	}}
	d := newTestDispatcher(store)

	result, err := d.TriggerWebhooks(context.Background(), "report_generated", nil)
	require.NoError(t, err, "a dead endpoint must not fail the fan-out")

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, 0, result.Results[0].StatusCode)

	require.Len(t, store.webhookLogs, 1)
	assert.Equal(t, 0, store.webhookLogs[0].Status)
	require.NotNil(t, store.webhookLogs[0].Error)
}

func TestTriggerWebhooksPartialFailure(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := deadSrv.URL
	deadSrv.Close()

	store := &integrationStore{webhooks: []*models.Webhook{
		webhook("ok", okSrv.URL, "evt"),
		webhook("dead", deadURL, "evt"),
	}}
	d := newTestDispatcher(store)

	result, err := d.TriggerWebhooks(context.Background(), "evt", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Triggered)
	require.Len(t, result.Results, 2)
	require.Len(t, store.webhookLogs, 2)

	outcomes := map[string]bool{}
	for _, dr := range result.Results {
		outcomes[dr.IntegrationID] = dr.Success
	}
	assert.True(t, outcomes["ok"])
	assert.False(t, outcomes["dead"])
}

func TestTriggerWebhooksStoreErrorFailsTheCall(t *testing.T) {
	store := &integrationStore{readErr: utils.NewAppError(utils.ErrCodeDatabase, "query failed", "")}
	d := newTestDispatcher(store)

	_, err := d.TriggerWebhooks(context.Background(), "evt", nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeDatabase, utils.ErrorCode(err))
}

func TestSendSlackAlert(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := &integrationStore{integrations: []*models.SlackIntegration{
		{ID: "s1", Channel: "#alerts", WebhookURL: srv.URL, AlertTypes: []string{"threshold_breached"}, Active: true},
		{ID: "s2", Channel: "#noise", WebhookURL: srv.URL, AlertTypes: []string{"goal_achieved"}, Active: true},
		{ID: "s3", Channel: "#off", WebhookURL: srv.URL, AlertTypes: []string{"threshold_breached"}, Active: false},
	}}
	d := newTestDispatcher(store)

	result, err := d.SendSlackAlert(context.Background(), "threshold_breached", "CPU high", "CPU above 90%", map[string]interface{}{"current_value": 93})
	require.NoError(t, err)

	// Only the active, subscribed integration fires
	assert.Equal(t, 1, result.Triggered)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "s1", result.Results[0].IntegrationID)
	assert.True(t, result.Results[0].Success)

	require.Len(t, bodies, 1)
	attachments := bodies[0]["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]interface{})
	assert.Equal(t, "danger", attachment["color"])
	assert.Equal(t, "CPU high", attachment["title"])

	require.Len(t, store.slackLogs, 1)
	assert.Equal(t, "threshold_breached", store.slackLogs[0].AlertType)
	assert.Equal(t, http.StatusOK, store.slackLogs[0].Status)
}

func TestSendSlackAlertNoSubscribers(t *testing.T) {
	store := &integrationStore{}
	d := newTestDispatcher(store)

	result, err := d.SendSlackAlert(context.Background(), "anomaly_detected", "t", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Triggered)
	assert.Empty(t, store.slackLogs)
}
