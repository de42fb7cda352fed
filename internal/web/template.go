package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sweeney/captouch/internal/status"
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
	// bar renders a 0-127 pressure value as a fixed-width text gauge.
	"bar": func(v uint16) string {
		n := int(v) * 32 / 127
		return strings.Repeat("#", n) + strings.Repeat(".", 32-n)
	},
	"stateClass": func(s fmt.Stringer) string {
		switch s.String() {
		case "HIGH_FREQUENCY":
			return "touch"
		case "LOW_FREQUENCY":
			return "idle"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cap Touch</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.touch { color: green; font-weight: bold; }
.idle { color: #888; }
.off { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cap Touch</h1>

<h2>Sensor</h2>
<table>
<tr><th>State</th><td class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Pressure</th><td>{{.Pressure}}</td></tr>
<tr><th>Nominal</th><td>{{.Region.Nominal}}</td></tr>
<tr><th>Activate below</th><td>{{.Region.Activate}}</td></tr>
<tr><th>Saturate at</th><td>{{.Region.Saturate}}</td></tr>
{{if .Calibrated}}<tr><th>Last calibration</th><td>{{.Calibration.Point}} (filtered {{.Calibration.Filtered}}), next in {{.Calibration.Period}}</td></tr>{{end}}
</table>

<h2>Recent Samples</h2>
<table>
<tr><th>Raw / Filtered</th><th>Pressure</th></tr>
{{range .Recent}}<tr><td>{{.Raw}} / {{.Filtered}}</td><td>{{bar .Transformed}} {{.Transformed}}</td></tr>
{{else}}<tr><td colspan="2">none</td></tr>
{{end}}</table>

<h2>Counters</h2>
<table>
<tr><th>Samples</th><td>{{.Stats.Samples}}</td></tr>
<tr><th>Activations</th><td>{{.Stats.Activations}}</td></tr>
<tr><th>Releases</th><td>{{.Stats.Releases}}</td></tr>
<tr><th>Calibrations</th><td>{{.Stats.Calibrations}} ({{.Stats.SkippedCalibrations}} skipped)</td></tr>
<tr><th>Dropped</th><td>{{.Stats.Dropped}}</td></tr>
<tr><th>Zero samples</th><td>{{.Stats.ZeroSamples}}</td></tr>
<tr><th>Sink errors</th><td>{{.Stats.SinkErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Board</th><td>{{.Config.Board}}</td></tr>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>Step</th><td>{{.Config.StepMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
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
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
