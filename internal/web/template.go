package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/wrist-hr/internal/status"
)

// Chart geometry for the history sparkline, in SVG user units.
const (
	chartW   = 480
	chartH   = 120
	chartMin = 40
	chartMax = 180
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
	"bpm": func(v uint8) string {
		if v == 0 {
			return "--"
		}
		return fmt.Sprintf("%d", v)
	},
	"points": sparkline,
}).Parse(indexHTML))

// sparkline returns SVG polyline points for the non-empty samples, spread
// across the full chart width by slot index.
func sparkline(samples []uint8) string {
	if len(samples) < 2 {
		return ""
	}
	var b strings.Builder
	step := float64(chartW) / float64(len(samples)-1)
	for i, v := range samples {
		if v == 0 {
			continue
		}
		c := int(v)
		if c < chartMin {
			c = chartMin
		} else if c > chartMax {
			c = chartMax
		}
		y := chartH - (c-chartMin)*chartH/(chartMax-chartMin)
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%d", float64(i)*step, y)
	}
	return b.String()
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wrist HR</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
svg { border: 1px solid #ddd; width: 100%; height: auto; }
polyline { fill: none; stroke: #c00; stroke-width: 2; }
</style>
</head>
<body>
<h1>Wrist HR</h1>

<h2>Device</h2>
<table>
<tr><th>Boot count</th><td>{{.BootCount}}</td></tr>
<tr><th>Screen</th><td>{{.Screen}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
</table>

<h2>Last cycle</h2>
{{with .LastCycle}}<table>
<tr><th>Reason</th><td>{{.Reason}}</td></tr>
<tr><th>State</th><td>{{.State}}</td></tr>
<tr><th>Heart rate</th><td>{{bpm .BPM}} BPM{{if not .Stored}} (not stored){{end}}</td></tr>
<tr><th>Battery</th><td>{{printf "%.2f" .Volts}} V</td></tr>
<tr><th>Renders</th><td>{{.Renders}}</td></tr>
<tr><th>Awake</th><td>{{uptime .Duration}}</td></tr>
<tr><th>Finished</th><td>{{.Finished.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
</table>{{else}}<p>No cycle yet.</p>{{end}}

<h2>History</h2>
<p>{{.HistoryCount}} / {{.Config.HistoryCapacity}} readings{{if not .LastReading.IsZero}}, last at {{.LastReading.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</p>
<svg viewBox="0 0 480 120" preserveAspectRatio="none"><polyline points="{{points .History}}"/></svg>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Inactivity timeout</th><td>{{.Config.InactivityTimeoutMs}}ms</td></tr>
<tr><th>Timer wake</th><td>{{.Config.TimerWakeMs}}ms</td></tr>
<tr><th>Measure window</th><td>{{.Config.MeasureWindowMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	indexTmpl.Execute(w, snap)
}
