package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/report-dispatcher/internal/config"
)

func TestAlertColor(t *testing.T) {
	assert.Equal(t, "danger", AlertColor(AlertThresholdBreached))
	assert.Equal(t, "warning", AlertColor(AlertAnomalyDetected))
	assert.Equal(t, "good", AlertColor(AlertGoalAchieved))
	assert.Equal(t, "#36a64f", AlertColor("something_else"))
}

func TestBuildAlertMessage(t *testing.T) {
	now := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)
	c := NewSlackClient(&config.DispatchConfig{DeliveryTimeout: time.Second}, func() time.Time { return now })

	msg := c.BuildAlertMessage("#alerts", AlertThresholdBreached, "CPU high", "CPU above 90%", map[string]interface{}{
		"current_value": 93.5,
		"metric_name":   "cpu_usage",
	})

	assert.Equal(t, "#alerts", msg.Channel)
	assert.Equal(t, "Analytics Bot", msg.Username)
	assert.Equal(t, ":chart_with_upwards_trend:", msg.IconEmoji)

	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "danger", att.Color)
	assert.Equal(t, "CPU high", att.Title)
	assert.Equal(t, "CPU above 90%", att.Text)
	assert.Equal(t, "Analytics Dashboard", att.Footer)
	assert.Equal(t, now.Unix(), att.Ts)

	// Alert Type and Timestamp lead, then the data keys sorted and
	// upper-cased with underscores turned into spaces
	require.Len(t, att.Fields, 4)
	assert.Equal(t, "Alert Type", att.Fields[0].Title)
	assert.Equal(t, AlertThresholdBreached, att.Fields[0].Value)
	assert.Equal(t, "Timestamp", att.Fields[1].Title)
	assert.Equal(t, "CURRENT VALUE", att.Fields[2].Title)
	assert.Equal(t, "93.5", att.Fields[2].Value)
	assert.Equal(t, "METRIC NAME", att.Fields[3].Title)
	assert.Equal(t, "cpu_usage", att.Fields[3].Value)
}

func TestBuildAlertMessageNoData(t *testing.T) {
	c := NewSlackClient(&config.DispatchConfig{}, nil)

	msg := c.BuildAlertMessage("#wins", AlertGoalAchieved, "Target reached", "", nil)

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "good", msg.Attachments[0].Color)
	assert.Len(t, msg.Attachments[0].Fields, 2)
}
