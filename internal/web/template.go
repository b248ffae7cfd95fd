package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/grower/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Grower</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.watering { color: green; font-weight: bold; }
.idle { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Grower</h1>

<h2>State</h2>
<table>
<tr><th>Machine</th><td class="{{if eq (stateOrUnknown .State) "TurnOn"}}watering{{else if eq (stateOrUnknown .State) "UNKNOWN"}}unknown{{else}}idle{{end}}">{{stateOrUnknown .State}}</td></tr>
{{if .Cycle}}<tr><th>Cycle</th><td>pin {{.Cycle.Pin}}, hour {{.Cycle.StartHour}}, {{.Cycle.Pulses}}/{{.Cycle.TimeOn}} pulses</td></tr>{{end}}
{{if not .LastTransition.IsZero}}<tr><th>Last Transition</th><td>{{.LastTransition.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Schedule</h2>
<table>
<tr><th>Entries</th><td>{{.Schedule.Entries}}</td></tr>
<tr><th>GPIO Mode</th><td>{{.Schedule.GPIOMode}}</td></tr>
<tr><th>Fingerprint</th><td>{{.Schedule.Fingerprint}}</td></tr>
<tr><th>File</th><td>{{.Config.SchedulePath}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Totals</h2>
<table>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Cycles Started</th><td>{{.Counts.CyclesStarted}}</td></tr>
<tr><th>Cycles Completed</th><td>{{.Counts.CyclesCompleted}}</td></tr>
<tr><th>Pulses</th><td>{{.Counts.Pulses}}</td></tr>
<tr><th>Reloads Applied</th><td>{{.Counts.ReloadsApplied}}</td></tr>
<tr><th>Reload Failures</th><td>{{.Counts.ReloadFailures}}</td></tr>
<tr><th>GPIO Write Failures</th><td>{{.Counts.GPIOWriteFailures}}</td></tr>
<tr><th>Mode Mismatches</th><td>{{.Counts.ModeMismatches}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>GPIO Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
