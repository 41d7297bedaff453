package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/internal/metrics"
	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/internal/notify"
	"github.com/smartdevs17/report-dispatcher/internal/report"
	"github.com/smartdevs17/report-dispatcher/internal/storage"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// Scheduler drives the minute-resolution report dispatch loop. Every
// tick it selects the active reports whose time of day matches the
// current minute, filters them by calendar frequency, and runs each one
// concurrently through render, store, and email delivery.
type Scheduler struct {
	config    *config.SchedulerConfig
	store     storage.Storage
	renderer  report.Renderer
	artifacts report.ArtifactStore
	email     notify.EmailSender
	metrics   *metrics.PrometheusMetrics
	logger    *logrus.Entry

	now      func() time.Time
	location *time.Location
	cron     *cron.Cron

	mu       sync.RWMutex
	running  bool
	lastTick *time.Time
}

// SchedulerHealth reports scheduler health for the health endpoint
type SchedulerHealth struct {
	Healthy  bool       `json:"healthy"`
	Running  bool       `json:"running"`
	LastTick *time.Time `json:"last_tick,omitempty"`
}

// NewScheduler creates a new report scheduler
func NewScheduler(cfg *config.SchedulerConfig, store storage.Storage, renderer report.Renderer, artifacts report.ArtifactStore, email notify.EmailSender, promMetrics *metrics.PrometheusMetrics) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Invalid scheduler timezone", err.Error())
	}

	return &Scheduler{
		config:    cfg,
		store:     store,
		renderer:  renderer,
		artifacts: artifacts,
		email:     email,
		metrics:   promMetrics,
		logger:    logrus.WithField("component", "scheduler"),
		now:       time.Now,
		location:  loc,
	}, nil
}

// SetClock overrides the scheduler clock. Used by tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start starts the cron-driven tick loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Scheduler already running", "")
	}

	s.logger.WithFields(logrus.Fields{
		"timezone":     s.config.Timezone,
		"tick_timeout": s.config.TickTimeout,
	}).Info("Starting report scheduler")

	s.cron = cron.New(cron.WithLocation(s.location))
	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.tick(context.Background())
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to register tick schedule", err.Error())
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Report scheduler started")
	return nil
}

// Stop stops the tick loop and waits for in-flight ticks
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	s.logger.Info("Stopping report scheduler")

	// Drain without holding the mutex: an in-flight tick takes it to
	// record its completion time.
	stopCtx := c.Stop()
	<-stopCtx.Done()

	s.logger.Info("Report scheduler stopped")
	return nil
}

// IsHealthy returns whether the scheduler is healthy
func (s *Scheduler) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetHealth returns scheduler health details
func (s *Scheduler) GetHealth() *SchedulerHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &SchedulerHealth{
		Healthy:  s.running,
		Running:  s.running,
		LastTick: s.lastTick,
	}
}

// tick wraps RunTick with the configured timeout and metrics
func (s *Scheduler) tick(ctx context.Context) {
	if s.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TickTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.RunTick(ctx, s.now())

	status := "success"
	due := 0
	if err != nil {
		status = "failed"
		s.logger.WithError(err).Error("Scheduler tick failed")
	} else {
		due = result.Processed
	}
	if s.metrics != nil {
		s.metrics.RecordTick(status, time.Since(start), due)
	}
}

// RunTick executes one scheduling pass at the given instant. All due
// reports run concurrently; one report failing never blocks the others.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) (*models.TickResult, error) {
	now = now.In(s.location)
	timeOfDay := now.Format("15:04")

	reports, err := s.store.GetDueReports(ctx, timeOfDay)
	if err != nil {
		return nil, err
	}

	due := make([]*models.ScheduledReport, 0, len(reports))
	for _, r := range reports {
		if matchesFrequency(r.Frequency, now) {
			due = append(due, r)
		}
	}

	result := &models.TickResult{
		Results: make([]models.ReportRunResult, len(due)),
	}
	if len(due) == 0 {
		return result, nil
	}

	s.logger.WithFields(logrus.Fields{
		"time": timeOfDay,
		"due":  len(due),
	}).Info("Processing due reports")

	var wg sync.WaitGroup
	for i, r := range due {
		wg.Add(1)
		go func(i int, r *models.ScheduledReport) {
			defer wg.Done()
			result.Results[i] = s.processReport(ctx, r, now)
		}(i, r)
	}
	wg.Wait()

	result.Processed = len(due)
	for _, rr := range result.Results {
		if rr.Status == models.RunStatusSuccess {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	s.mu.Lock()
	tickAt := now
	s.lastTick = &tickAt
	s.mu.Unlock()

	return result, nil
}

// processReport runs a single report through render, artifact storage,
// and email delivery, then records the outcome. The schedule advances
// only on success; a failed run leaves last_run and next_run untouched
// so the report fires again at its next matching slot.
func (s *Scheduler) processReport(ctx context.Context, r *models.ScheduledReport, now time.Time) models.ReportRunResult {
	start := time.Now()
	logger := s.logger.WithFields(logrus.Fields{
		"report_id": r.ID,
		"name":      r.Name,
		"frequency": r.Frequency,
	})
	logger.Info("Dispatching scheduled report")

	runErr := s.dispatch(ctx, r, now)

	result := models.ReportRunResult{
		ReportID: r.ID,
		Name:     r.Name,
	}
	runLog := &models.ReportLog{
		ID:         utils.MustGenerateID(),
		ReportID:   r.ID,
		ExecutedAt: now,
	}

	if runErr != nil {
		logger.WithError(runErr).Error("Scheduled report failed")
		msg := runErr.Error()
		result.Status = models.RunStatusFailed
		result.Error = msg
		runLog.Status = models.RunStatusFailed
		runLog.Error = &msg
	} else {
		result.Status = models.RunStatusSuccess
		result.RecipientsCount = len(r.Recipients)
		runLog.Status = models.RunStatusSuccess
		runLog.RecipientsCount = len(r.Recipients)

		nextRun := ComputeNextRun(r.Frequency, r.Time, now)
		if err := s.store.UpdateReportRuns(ctx, r.ID, now, nextRun); err != nil {
			logger.WithError(err).Error("Failed to advance report schedule")
		}
		logger.WithFields(logrus.Fields{
			"recipients": len(r.Recipients),
			"next_run":   nextRun,
		}).Info("Scheduled report dispatched")
	}

	// The audit trail is best effort: a log insert failure must not
	// turn a delivered report into a failed run.
	if err := s.store.SaveReportLog(ctx, runLog); err != nil {
		logger.WithError(err).Error("Failed to record report log")
	}

	if s.metrics != nil {
		s.metrics.RecordReportDispatched(string(r.Frequency), result.Status, time.Since(start))
		if result.Status == models.RunStatusSuccess {
			s.metrics.RecordRecipientsNotified(len(r.Recipients))
		}
	}

	return result
}

// dispatch performs the render, store, and email pipeline for one report
func (s *Scheduler) dispatch(ctx context.Context, r *models.ScheduledReport, now time.Time) error {
	content, err := s.renderer.Render(ctx, r.Dashboards)
	if err != nil {
		return err
	}

	name := report.ArtifactName(r.ID, now)
	url, err := s.artifacts.Put(ctx, name, content)
	if err != nil {
		return err
	}

	msg := &notify.Email{
		To:      r.Recipients,
		Subject: fmt.Sprintf("%s - %s", r.Name, now.Format("January 2, 2006")),
		HTMLBody: fmt.Sprintf(
			"<p>Hello,</p><p>Your scheduled report <strong>%s</strong> is attached.</p><p><a href=%q>Download report</a></p>",
			r.Name, url,
		),
		Attachment: &notify.Attachment{
			Filename:    name,
			ContentType: "application/pdf",
			Data:        content,
		},
	}
	return s.email.Send(ctx, msg)
}
