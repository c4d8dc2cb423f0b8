// Package report renders workflow run reports as HTML, publishes them to the
// artifact store and serves them, with the checks database, over HTTP.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/models"
	"github.com/zulandar/praktika/internal/workflow"
)

//go:embed templates/*.html
var templatesFS embed.FS

// RunReport is everything shown on a run's report page.
type RunReport struct {
	RunID      string
	Workflow   string
	Event      string
	CommitSHA  string
	PRNumber   int
	BaseRef    string
	HeadRef    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Jobs       []JobRow
}

// JobRow is one job line in a report.
type JobRow struct {
	Name      string
	Status    string
	Cached    bool
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	Info      string
	LogURL    string
}

// FromChecks builds a report from a stored run and its check rows. Rows are
// listed oldest first.
func FromChecks(run models.WorkflowRun, rows []models.Check) RunReport {
	r := RunReport{
		RunID:     run.ID,
		Workflow:  run.Workflow,
		Event:     run.Event,
		CommitSHA: run.CommitSHA,
		PRNumber:  run.PullRequestNumber,
		BaseRef:   run.BaseRef,
		HeadRef:   run.HeadRef,
		Status:    run.Status,
		StartedAt: run.StartedAt,
	}
	if run.FinishedAt != nil {
		r.FinishedAt = *run.FinishedAt
	}
	for i := len(rows) - 1; i >= 0; i-- {
		c := rows[i]
		r.Jobs = append(r.Jobs, JobRow{
			Name:      c.CheckName,
			Status:    c.CheckStatus,
			Cached:    c.Cached,
			StartedAt: c.CheckStartTime,
			Duration:  time.Duration(c.CheckDurationMs) * time.Millisecond,
			ExitCode:  c.ExitCode,
			Info:      c.Info,
			LogURL:    fmt.Sprintf("/api/runs/%s/logs/%s", url.PathEscape(run.ID), url.PathEscape(c.CheckName)),
		})
	}
	return r
}

var funcs = template.FuncMap{
	"shortSHA": func(sha string) string {
		if len(sha) > 8 {
			return sha[:8]
		}
		return sha
	},
	"timestamp": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"duration": func(d time.Duration) string {
		return d.Round(time.Second).String()
	},
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Render writes r as a standalone HTML page.
func Render(w io.Writer, r RunReport) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := tmpl.ExecuteTemplate(w, "report.html", r); err != nil {
		return fmt.Errorf("report: render %s: %w", r.RunID, err)
	}
	return nil
}

// Publisher uploads rendered reports under the html_s3_path setting.
type Publisher struct {
	Store *artifacts.Store
}

// Key returns the S3 path of a run's report.
func (p *Publisher) Key(runID, workflowName string) string {
	return path.Join(p.Store.Settings.HTMLS3Path, runID, workflow.Normalize(workflowName)+".html")
}

// Publish renders r, stores it and returns the URL it can be viewed at.
func (p *Publisher) Publish(r RunReport) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return "", err
	}
	key := p.Key(r.RunID, r.Workflow)
	if err := p.Store.PutBytes(key, buf.Bytes()); err != nil {
		return "", fmt.Errorf("report: publish %s: %w", r.RunID, err)
	}
	u, err := p.Store.URL(key)
	if err != nil {
		return "", fmt.Errorf("report: publish %s: %w", r.RunID, err)
	}
	return u, nil
}
