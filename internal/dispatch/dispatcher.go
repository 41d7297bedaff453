package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/internal/metrics"
	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/internal/notify"
	"github.com/smartdevs17/report-dispatcher/internal/storage"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// Dispatcher fans out analytics events to their subscribed webhooks and
// Slack channels. Delivery is concurrent but bounded, and every attempt
// leaves a log row whether or not the endpoint answered.
type Dispatcher struct {
	config   *config.DispatchConfig
	store    storage.Storage
	webhooks *notify.WebhookClient
	slack    *notify.SlackClient
	metrics  *metrics.PrometheusMetrics
	logger   *logrus.Entry
	now      func() time.Time
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(cfg *config.DispatchConfig, store storage.Storage, promMetrics *metrics.PrometheusMetrics) *Dispatcher {
	now := time.Now
	return &Dispatcher{
		config:   cfg,
		store:    store,
		webhooks: notify.NewWebhookClient(cfg),
		slack:    notify.NewSlackClient(cfg, now),
		metrics:  promMetrics,
		logger:   logrus.WithField("component", "dispatcher"),
		now:      now,
	}
}

// SetClock overrides the dispatcher clock. Used by tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
	d.slack = notify.NewSlackClient(d.config, now)
}

// TriggerWebhooks delivers an event to every active webhook subscribed
// to eventType. An unreachable endpoint is recorded with status 0 and
// never aborts the rest of the fan-out.
func (d *Dispatcher) TriggerWebhooks(ctx context.Context, eventType string, data map[string]interface{}) (*models.DispatchResult, error) {
	hooks, err := d.store.GetWebhooksByTrigger(ctx, eventType)
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"event_type": eventType,
		"matched":    len(hooks),
	}).Info("Triggering webhooks")

	result := &models.DispatchResult{
		Triggered: len(hooks),
		Results:   make([]models.DeliveryResult, len(hooks)),
	}
	if len(hooks) == 0 {
		return result, nil
	}

	sem := d.semaphore()
	var wg sync.WaitGroup
	for i, hook := range hooks {
		wg.Add(1)
		go func(i int, hook *models.Webhook) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result.Results[i] = d.deliverWebhook(ctx, hook, eventType, data)
		}(i, hook)
	}
	wg.Wait()

	return result, nil
}

func (d *Dispatcher) deliverWebhook(ctx context.Context, hook *models.Webhook, eventType string, data map[string]interface{}) models.DeliveryResult {
	start := time.Now()
	if d.config.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.DeliveryTimeout)
		defer cancel()
	}

	payload := &notify.WebhookPayload{
		Event:     eventType,
		Timestamp: d.now().UTC(),
		Data:      data,
		WebhookID: hook.ID,
	}

	status, err := d.webhooks.Post(ctx, hook.URL, payload)
	result := models.DeliveryResult{
		IntegrationID: hook.ID,
		StatusCode:    status,
		Success:       err == nil,
	}

	logRow := &models.WebhookLog{
		ID:         utils.MustGenerateID(),
		WebhookID:  hook.ID,
		EventType:  eventType,
		Status:     status,
		ExecutedAt: d.now(),
	}
	if err != nil {
		msg := err.Error()
		result.Error = msg
		logRow.Error = &msg
		d.logger.WithError(err).WithFields(logrus.Fields{
			"webhook_id": hook.ID,
			"url":        hook.URL,
		}).Warn("Webhook delivery failed")
	}

	if saveErr := d.store.SaveWebhookLog(ctx, logRow); saveErr != nil {
		d.logger.WithError(saveErr).WithField("webhook_id", hook.ID).Error("Failed to record webhook log")
	}

	if d.metrics != nil {
		d.metrics.RecordDelivery("webhook", deliveryStatus(err), time.Since(start))
	}
	return result
}

// SendSlackAlert delivers an alert to every active Slack integration
// subscribed to alertType.
func (d *Dispatcher) SendSlackAlert(ctx context.Context, alertType, title, message string, data map[string]interface{}) (*models.DispatchResult, error) {
	integrations, err := d.store.GetSlackIntegrationsByAlertType(ctx, alertType)
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"alert_type": alertType,
		"matched":    len(integrations),
	}).Info("Sending Slack alert")

	result := &models.DispatchResult{
		Triggered: len(integrations),
		Results:   make([]models.DeliveryResult, len(integrations)),
	}
	if len(integrations) == 0 {
		return result, nil
	}

	sem := d.semaphore()
	var wg sync.WaitGroup
	for i, integration := range integrations {
		wg.Add(1)
		go func(i int, integration *models.SlackIntegration) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result.Results[i] = d.deliverSlack(ctx, integration, alertType, title, message, data)
		}(i, integration)
	}
	wg.Wait()

	return result, nil
}

func (d *Dispatcher) deliverSlack(ctx context.Context, integration *models.SlackIntegration, alertType, title, message string, data map[string]interface{}) models.DeliveryResult {
	start := time.Now()
	if d.config.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.DeliveryTimeout)
		defer cancel()
	}

	msg := d.slack.BuildAlertMessage(integration.Channel, alertType, title, message, data)
	status, err := d.slack.Post(ctx, integration.WebhookURL, msg)

	result := models.DeliveryResult{
		IntegrationID: integration.ID,
		StatusCode:    status,
		Success:       err == nil,
	}

	logRow := &models.SlackLog{
		ID:            utils.MustGenerateID(),
		IntegrationID: integration.ID,
		AlertType:     alertType,
		Status:        status,
		SentAt:        d.now(),
	}
	if err != nil {
		msg := err.Error()
		result.Error = msg
		logRow.Error = &msg
		d.logger.WithError(err).WithFields(logrus.Fields{
			"integration_id": integration.ID,
			"channel":        integration.Channel,
		}).Warn("Slack delivery failed")
	}

	if saveErr := d.store.SaveSlackLog(ctx, logRow); saveErr != nil {
		d.logger.WithError(saveErr).WithField("integration_id", integration.ID).Error("Failed to record Slack log")
	}

	if d.metrics != nil {
		d.metrics.RecordDelivery("slack", deliveryStatus(err), time.Since(start))
	}
	return result
}

func (d *Dispatcher) semaphore() chan struct{} {
	size := d.config.MaxConcurrent
	if size <= 0 {
		size = 1
	}
	return make(chan struct{}, size)
}

func deliveryStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
