package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ok": func(s string) bool { return s == "connected" || s == "reachable" },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Find On LU · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="30">
  <style>
    :root { --blue: #003A70; --gold: #FFC72C; --bg: #F5F7FA; --muted: #64748b; --bad: #DC2626; }
    body { background: var(--bg); color: var(--blue); font-family: system-ui, sans-serif; margin: 0; padding: 48px 16px; }
    main { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 40px; margin: 0 0 8px; }
    h1.issue { color: var(--bad); }
    p.sub { color: var(--muted); font-weight: 600; margin: 0 0 32px; }
    .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(260px, 1fr)); gap: 16px; }
    .card { background: #fff; border-radius: 16px; padding: 24px; box-shadow: 0 8px 30px rgba(0,58,112,0.08); border-top: 4px solid var(--gold); }
    .label { text-transform: uppercase; font-size: 11px; letter-spacing: 2px; color: #94a3b8; font-weight: 800; margin-bottom: 16px; }
    .big { font-size: 36px; font-weight: 900; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f1f5f9; font-size: 14px; font-weight: 600; }
    .row:last-child { border-bottom: none; }
    .pill { padding: 2px 10px; border-radius: 8px; font-size: 12px; font-weight: 800; }
    .good { background: rgba(0,58,112,0.08); }
    .bad { background: rgba(220,38,38,0.1); color: var(--bad); }
    footer { margin-top: 24px; font-family: monospace; color: var(--muted); }
  </style>
</head>
<body>
<main>
  {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
  <p class="sub">Find On LU marketplace API</p>
  <div class="grid">
    <section class="card">
      <div class="label">Traffic</div>
      <div class="big">{{.Traffic.TotalRequests}}</div>
      <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
      <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
      <div class="row"><span>Success rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
      <div class="row"><span>Avg latency</span><span>{{.Traffic.AvgResponseTime}} ms</span></div>
    </section>
    <section class="card">
      <div class="label">Runtime</div>
      <div class="big">{{.Runtime.UptimeSeconds}}s</div>
      <div class="row"><span>Heap in use</span><span>{{.Runtime.Memory.HeapInMB}} MB</span></div>
      <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
      <div class="row"><span>Platform</span><span>{{.Runtime.Platform}}</span></div>
      <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}}</span></div>
    </section>
    <section class="card">
      <div class="label">Dependencies</div>
      {{range $name := .DependencyNames}}{{with index $.Dependencies $name}}
      <div class="row"><span>{{$name}}</span><span class="pill {{if ok .Status}}good{{else}}bad{{end}}">{{.Status}}{{if .PingMs}} · {{.PingMs}} ms{{end}}</span></div>
      {{end}}{{end}}
    </section>
  </div>
  {{with .Traffic.LastRequest}}<footer>last request: {{index . "method"}} {{index . "path"}}</footer>{{end}}
</main>
</body>
</html>`))

// RenderDashboardHTML renders the status page served at GET /.
func RenderDashboardHTML(r Report) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
