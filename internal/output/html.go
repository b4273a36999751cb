package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/loadworks/swarmload/internal/loadtest"
	"github.com/loadworks/swarmload/internal/threshold"
)

// HTMLReportData feeds the standalone HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Reports          []*loadtest.Report
	ThresholdResults []threshold.Result
	Passed           int
	Failed           int
}

// WriteHTMLReport renders a standalone HTML summary of the run reports.
func WriteHTMLReport(w io.Writer, reports []*loadtest.Report, thresholdResults []threshold.Result) error {
	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Reports:          reports,
		ThresholdResults: thresholdResults,
	}
	for _, tr := range thresholdResults {
		if tr.Pass {
			data.Passed++
		} else {
			data.Failed++
		}
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>swarmload report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: right; }
th { background: #f4f4f4; }
td:first-child, th:first-child { text-align: left; }
.pass { color: #2e7d32; }
.fail { color: #c62828; }
</style>
</head>
<body>
<h1>swarmload report</h1>
<p>Generated {{.GeneratedAt}}</p>
{{range .Reports}}
<h2>{{.Scenario}}</h2>
<p>Run {{.ID}} against {{.Host}} with {{.Users}} users ({{formatFloat .SpawnRate}}/s)</p>
<table>
<tr><th>Requests</th><th>Failures</th><th>RPS</th><th>Avg (ms)</th><th>Median (ms)</th><th>P95 (ms)</th><th>Max (ms)</th></tr>
<tr>
<td>{{.Requests}}</td>
<td>{{.Failures}}</td>
<td>{{formatFloat .RequestsPerSec}}</td>
<td>{{formatFloat .AvgLatencyMs}}</td>
<td>{{formatFloat .MedianLatencyMs}}</td>
<td>{{formatFloat .P95LatencyMs}}</td>
<td>{{formatFloat .MaxLatencyMs}}</td>
</tr>
</table>
{{if .Errors}}
<table>
<tr><th>Error</th><th>Method</th><th>Name</th><th>Occurrences</th></tr>
{{range .Errors}}
<tr><td>{{.Error}}</td><td>{{.Method}}</td><td>{{.Name}}</td><td>{{.Occurrences}}</td></tr>
{{end}}
</table>
{{end}}
{{if gt .Overhead.Count 0}}
<table>
<tr><th>Overhead samples</th><th>Min (ms)</th><th>Max (ms)</th><th>Avg (ms)</th><th>Median (ms)</th></tr>
<tr>
<td>{{.Overhead.Count}}</td>
<td>{{formatFloat .Overhead.MinMs}}</td>
<td>{{formatFloat .Overhead.MaxMs}}</td>
<td>{{formatFloat .Overhead.AvgMs}}</td>
<td>{{formatFloat .Overhead.MedianMs}}</td>
</tr>
</table>
{{end}}
{{end}}
{{if .ThresholdResults}}
<h2>Thresholds ({{.Passed}} passed, {{.Failed}} failed)</h2>
<table>
<tr><th>Threshold</th><th>Actual</th><th>Result</th></tr>
{{range .ThresholdResults}}
<tr>
<td>{{.Threshold.Raw}}</td>
<td>{{formatFloat .Actual}}</td>
{{if .Pass}}<td class="pass">pass</td>{{else}}<td class="fail">fail</td>{{end}}
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
