package models

import (
	"regexp"
	"time"
)

// Frequency determines how often a scheduled report fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// IsValid reports whether f is one of the supported frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ReportFormat is the output format of a scheduled report.
// Only PDF rendering is implemented; excel and csv are accepted at
// registration time for forward compatibility with the dashboard UI.
type ReportFormat string

const (
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "excel"
	FormatCSV   ReportFormat = "csv"
)

// IsValid reports whether f is a known report format.
func (f ReportFormat) IsValid() bool {
	switch f {
	case FormatPDF, FormatExcel, FormatCSV:
		return true
	}
	return false
}

// timeOfDayRe matches 24h "HH:MM" strings.
var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidTimeOfDay reports whether s is a well-formed 24h HH:MM string.
func IsValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// ScheduledReport is a registered report dispatch schedule.
type ScheduledReport struct {
	ID         string       `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	Frequency  Frequency    `json:"frequency" db:"frequency"`
	Time       string       `json:"time" db:"time"` // "HH:MM", 24h, scheduler timezone
	Recipients []string     `json:"recipients" db:"recipients"`
	Dashboards []string     `json:"dashboards" db:"dashboards"`
	Format     ReportFormat `json:"format" db:"format"`
	Active     bool         `json:"active" db:"active"`
	LastRun    *time.Time   `json:"last_run,omitempty" db:"last_run"`
	NextRun    *time.Time   `json:"next_run,omitempty" db:"next_run"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Report log statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// ReportLog is one row of the append-only report execution audit trail.
type ReportLog struct {
	ID              string    `json:"id" db:"id"`
	ReportID        string    `json:"report_id" db:"report_id"`
	Status          string    `json:"status" db:"status"`
	RecipientsCount int       `json:"recipients_count,omitempty" db:"recipients_count"`
	Error           *string   `json:"error,omitempty" db:"error"`
	ExecutedAt      time.Time `json:"executed_at" db:"executed_at"`
}

// ReportRunResult is the per-report outcome of a scheduler tick.
type ReportRunResult struct {
	ReportID        string `json:"report_id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	RecipientsCount int    `json:"recipients_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// TickResult aggregates one scheduler tick.
type TickResult struct {
	Processed  int               `json:"processed"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []ReportRunResult `json:"results"`
}
