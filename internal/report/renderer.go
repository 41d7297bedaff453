package report

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// Renderer converts a list of named dashboards into a report document
type Renderer interface {
	Render(ctx context.Context, dashboards []string) ([]byte, error)
}

// TemplateRenderer renders dashboards into an HTML report document.
// A headless HTML-to-PDF converter can be layered on top; the byte
// stream is treated as opaque by the rest of the pipeline.
type TemplateRenderer struct {
	tmpl *template.Template
	now  func() time.Time
}

// reportTemplate is the report document layout
const reportTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>Analytics Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 40px; }
    .header { text-align: center; margin-bottom: 40px; }
    .dashboard { margin-bottom: 40px; page-break-inside: avoid; }
    .chart { width: 100%; height: 300px; border: 1px solid #ddd; margin: 20px 0; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Analytics Report</h1>
    <p>Generated on {{.GeneratedAt}}</p>
  </div>
  {{range .Dashboards}}
  <div class="dashboard">
    <h2>{{.}}</h2>
    <div class="chart">[Chart placeholder for {{.}}]</div>
  </div>
  {{end}}
</body>
</html>
`

type reportData struct {
	GeneratedAt string
	Dashboards  []string
}

// NewTemplateRenderer creates a renderer with the built-in report template
func NewTemplateRenderer(now func() time.Time) (*TemplateRenderer, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeRender, "Failed to parse report template", err.Error())
	}

	if now == nil {
		now = time.Now
	}

	return &TemplateRenderer{tmpl: tmpl, now: now}, nil
}

// Render produces the report document for the given dashboards
func (r *TemplateRenderer) Render(ctx context.Context, dashboards []string) ([]byte, error) {
	if len(dashboards) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeRender, "No dashboards to render", "")
	}

	data := reportData{
		GeneratedAt: r.now().Format("2006-01-02"),
		Dashboards:  dashboards,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeRender, "Failed to execute report template", err.Error())
	}

	return buf.Bytes(), nil
}
