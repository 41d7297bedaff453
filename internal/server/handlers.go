package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/smartdevs17/report-dispatcher/internal/models"
	"github.com/smartdevs17/report-dispatcher/internal/notify"
	"github.com/smartdevs17/report-dispatcher/internal/report"
	"github.com/smartdevs17/report-dispatcher/internal/scheduler"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

const defaultLogLimit = 50

// Scheduled Report Handlers

// listReportsHandler lists registered scheduled reports, newest first
func (s *HTTPServer) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := s.storage.GetScheduledReports(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve scheduled reports", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    reports,
		"total":   len(reports),
	})
}

// createReportHandler registers a new scheduled report
func (s *HTTPServer) createReportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		Frequency  string   `json:"frequency"`
		Time       string   `json:"time"`
		Recipients []string `json:"recipients"`
		Dashboards []string `json:"dashboards"`
		Format     string   `json:"format"`
		Active     *bool    `json:"active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "Report name is required", nil)
		return
	}
	if len(req.Recipients) == 0 {
		s.writeError(w, http.StatusBadRequest, "At least one recipient is required", nil)
		return
	}
	for _, recipient := range req.Recipients {
		if !notify.IsValidEmail(recipient) {
			s.writeError(w, http.StatusBadRequest, "Invalid recipient email: "+recipient, nil)
			return
		}
	}
	if !models.IsValidTimeOfDay(req.Time) {
		s.writeError(w, http.StatusBadRequest, "Time must be a 24h HH:MM string", nil)
		return
	}
	frequency := models.Frequency(req.Frequency)
	if !frequency.IsValid() {
		s.writeError(w, http.StatusBadRequest, "Frequency must be daily, weekly or monthly", nil)
		return
	}
	format := models.ReportFormat(req.Format)
	if req.Format == "" {
		format = models.FormatPDF
	}
	if !format.IsValid() {
		s.writeError(w, http.StatusBadRequest, "Format must be pdf, excel or csv", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.now()
	nextRun := scheduler.ComputeNextRun(frequency, req.Time, now)
	rec := &models.ScheduledReport{
		ID:         utils.MustGenerateID(),
		Name:       req.Name,
		Frequency:  frequency,
		Time:       req.Time,
		Recipients: req.Recipients,
		Dashboards: req.Dashboards,
		Format:     format,
		Active:     active,
		NextRun:    &nextRun,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.storage.SaveScheduledReport(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to save scheduled report", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    rec,
	})
}

// getReportHandler returns one scheduled report
func (s *HTTPServer) getReportHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := s.storage.GetScheduledReport(r.Context(), id)
	if err != nil {
		s.writeAppError(w, "Failed to retrieve scheduled report", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
	})
}

// updateReportHandler toggles a report's active flag
func (s *HTTPServer) updateReportHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Active == nil {
		s.writeError(w, http.StatusBadRequest, "Field active is required", nil)
		return
	}

	rec, err := s.storage.SetReportActive(r.Context(), id, *req.Active)
	if err != nil {
		s.writeAppError(w, "Failed to update scheduled report", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
	})
}

// listReportLogsHandler lists the execution log of one report
func (s *HTTPServer) listReportLogsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := queryLimit(r)

	logs, err := s.storage.GetReportLogs(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve report logs", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    logs,
		"total":   len(logs),
	})
}

// Webhook Handlers

// listWebhooksHandler lists registered webhooks
func (s *HTTPServer) listWebhooksHandler(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.storage.GetWebhooks(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve webhooks", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    hooks,
		"total":   len(hooks),
	})
}

// webhookActionHandler multiplexes webhook creation and event triggering
func (s *HTTPServer) webhookActionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string                 `json:"action"`
		Name      string                 `json:"name"`
		URL       string                 `json:"url"`
		Triggers  []string               `json:"triggers"`
		EventType string                 `json:"event_type"`
		Data      map[string]interface{} `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch req.Action {
	case "create":
		if req.Name == "" {
			s.writeError(w, http.StatusBadRequest, "Webhook name is required", nil)
			return
		}
		if req.URL == "" {
			s.writeError(w, http.StatusBadRequest, "Webhook url is required", nil)
			return
		}
		if len(req.Triggers) == 0 {
			s.writeError(w, http.StatusBadRequest, "At least one trigger is required", nil)
			return
		}

		hook := &models.Webhook{
			ID:        utils.MustGenerateID(),
			Name:      req.Name,
			URL:       req.URL,
			Triggers:  req.Triggers,
			Active:    true,
			CreatedAt: s.now(),
		}
		if err := s.storage.SaveWebhook(r.Context(), hook); err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to save webhook", err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    hook,
		})

	case "trigger":
		if req.EventType == "" {
			s.writeError(w, http.StatusBadRequest, "Field event_type is required", nil)
			return
		}

		result, err := s.dispatcher.TriggerWebhooks(r.Context(), req.EventType, req.Data)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to trigger webhooks", err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    result,
		})

	default:
		s.writeError(w, http.StatusBadRequest, "Unknown action: "+req.Action, nil)
	}
}

// listWebhookLogsHandler lists delivery logs of one webhook
func (s *HTTPServer) listWebhookLogsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := queryLimit(r)

	logs, err := s.storage.GetWebhookLogs(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve webhook logs", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    logs,
		"total":   len(logs),
	})
}

// Slack Integration Handlers

// listSlackIntegrationsHandler lists registered Slack integrations
func (s *HTTPServer) listSlackIntegrationsHandler(w http.ResponseWriter, r *http.Request) {
	integrations, err := s.storage.GetSlackIntegrations(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve Slack integrations", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    integrations,
		"total":   len(integrations),
	})
}

// slackActionHandler multiplexes Slack integration creation and alert sending
func (s *HTTPServer) slackActionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     string                 `json:"action"`
		Channel    string                 `json:"channel"`
		WebhookURL string                 `json:"webhook_url"`
		AlertTypes []string               `json:"alert_types"`
		AlertType  string                 `json:"alert_type"`
		Title      string                 `json:"title"`
		Message    string                 `json:"message"`
		Data       map[string]interface{} `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch req.Action {
	case "create":
		if req.Channel == "" {
			s.writeError(w, http.StatusBadRequest, "Slack channel is required", nil)
			return
		}
		if req.WebhookURL == "" {
			s.writeError(w, http.StatusBadRequest, "Field webhook_url is required", nil)
			return
		}
		if len(req.AlertTypes) == 0 {
			s.writeError(w, http.StatusBadRequest, "At least one alert type is required", nil)
			return
		}

		integration := &models.SlackIntegration{
			ID:         utils.MustGenerateID(),
			Channel:    req.Channel,
			WebhookURL: req.WebhookURL,
			AlertTypes: req.AlertTypes,
			Active:     true,
			CreatedAt:  s.now(),
		}
		if err := s.storage.SaveSlackIntegration(r.Context(), integration); err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to save Slack integration", err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    integration,
		})

	case "send_alert":
		if req.AlertType == "" {
			s.writeError(w, http.StatusBadRequest, "Field alert_type is required", nil)
			return
		}

		result, err := s.dispatcher.SendSlackAlert(r.Context(), req.AlertType, req.Title, req.Message, req.Data)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to send Slack alert", err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    result,
		})

	default:
		s.writeError(w, http.StatusBadRequest, "Unknown action: "+req.Action, nil)
	}
}

// listSlackLogsHandler lists delivery logs of one Slack integration
func (s *HTTPServer) listSlackLogsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := queryLimit(r)

	logs, err := s.storage.GetSlackLogs(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve Slack logs", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    logs,
		"total":   len(logs),
	})
}

// Report Function Handlers

// generateReportHandler renders a report and stores the artifact
func (s *HTTPServer) generateReportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportID   string   `json:"reportId"`
		Dashboards []string `json:"dashboards"`
		Format     string   `json:"format"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ReportID == "" {
		s.writeError(w, http.StatusBadRequest, "Field reportId is required", nil)
		return
	}
	if len(req.Dashboards) == 0 {
		s.writeError(w, http.StatusBadRequest, "At least one dashboard is required", nil)
		return
	}

	content, err := s.renderer.Render(r.Context(), req.Dashboards)
	if err != nil {
		s.writeAppError(w, "Failed to render report", err)
		return
	}

	name := report.ArtifactName(req.ReportID, s.now())
	url, err := s.artifacts.Put(r.Context(), name, content)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to store report artifact", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"pdfUrl":   url,
		"fileName": name,
	})
}

// sendReportEmailHandler emails a previously generated report artifact
func (s *HTTPServer) sendReportEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipients []string `json:"recipients"`
		ReportName string   `json:"reportName"`
		PDFURL     string   `json:"pdfUrl"`
		FileName   string   `json:"fileName"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Recipients) == 0 {
		s.writeError(w, http.StatusBadRequest, "At least one recipient is required", nil)
		return
	}
	for _, recipient := range req.Recipients {
		if !notify.IsValidEmail(recipient) {
			s.writeError(w, http.StatusBadRequest, "Invalid recipient email: "+recipient, nil)
			return
		}
	}
	if req.ReportName == "" {
		s.writeError(w, http.StatusBadRequest, "Field reportName is required", nil)
		return
	}
	if req.PDFURL == "" {
		s.writeError(w, http.StatusBadRequest, "Field pdfUrl is required", nil)
		return
	}

	content, err := s.artifacts.Get(r.Context(), req.PDFURL)
	if err != nil {
		s.writeAppError(w, "Failed to load report artifact", err)
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "report.pdf"
	}

	now := s.now()
	msg := &notify.Email{
		To:      req.Recipients,
		Subject: req.ReportName + " - " + now.Format("January 2, 2006"),
		HTMLBody: "<p>Hello,</p><p>Your scheduled report <strong>" + req.ReportName +
			"</strong> is attached.</p><p><a href=\"" + req.PDFURL + "\">Download report</a></p>",
		Attachment: &notify.Attachment{
			Filename:    fileName,
			ContentType: "application/pdf",
			Data:        content,
		},
	}
	if err := s.email.Send(r.Context(), msg); err != nil {
		s.writeAppError(w, "Failed to send report email", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Report sent to " + strconv.Itoa(len(req.Recipients)) + " recipients",
	})
}

// runTickHandler runs one scheduling pass immediately
func (s *HTTPServer) runTickHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.scheduler.RunTick(r.Context(), s.now())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Tick failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// queryLimit parses the limit query parameter
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLogLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLogLimit
	}
	return limit
}
