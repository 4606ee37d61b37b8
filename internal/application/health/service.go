package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"findonlu-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional. If nil, the database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Probe is an external HTTP endpoint whose reachability is reported but does not
// affect the overall status.
type Probe struct {
	Name string
	URL  string
}

type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapInMB int `json:"heapInUseMb"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	LastRequest     map[string]interface{} `json:"lastRequest,omitempty"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Collector gathers the health report. Probes run concurrently with a short timeout.
type Collector struct {
	Rdb    *redis.Client
	DB     DBPinger
	Probes []Probe
	Client *http.Client
}

func (c *Collector) Collect(ctx context.Context) Report {
	r := Report{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: "disconnected"}
	if c.DB != nil {
		start := time.Now()
		if err := c.DB.Ping(); err == nil {
			dbStatus = DepStatus{Status: "connected", PingMs: since(start)}
		} else {
			dbStatus.Status = "error"
		}
	}
	r.Dependencies["database"] = dbStatus

	startMs := time.Now().UnixMilli()
	r.Traffic = TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	redisStatus := DepStatus{Status: "disconnected"}
	if c.Rdb != nil {
		start := time.Now()
		if err := c.Rdb.Ping(ctx).Err(); err == nil {
			redisStatus = DepStatus{Status: "connected", PingMs: since(start)}
			startMs = c.readTraffic(ctx, &r.Traffic, startMs)
		} else {
			redisStatus.Status = "error"
		}
	}
	r.Dependencies["redis"] = redisStatus

	for name, st := range c.probe(ctx) {
		r.Dependencies[name] = st
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	r.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc >> 20), HeapInMB: int(m.HeapInuse >> 20)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if dbStatus.Status == "connected" && redisStatus.Status == "connected" {
		r.Status = "ok"
	} else {
		r.Status = "issue"
	}
	return r
}

// readTraffic fills t from the counters kept by middleware.HealthMarker and returns the
// recorded start time (initialising it on first use).
func (c *Collector) readTraffic(ctx context.Context, t *TrafficInfo, fallbackStart int64) int64 {
	vals, _ := c.Rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	get := func(i int) string {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				return s
			}
		}
		return ""
	}

	startMs := fallbackStart
	if s := get(4); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			startMs = v
		}
	} else {
		c.Rdb.Set(ctx, middleware.KeyStartTime, startMs, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(get(0))
	t.FailedCount, _ = strconv.Atoi(get(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(get(2), 64)
	count, _ := strconv.Atoi(get(3))
	if count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := get(5); s != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(s), &last) == nil {
			t.LastRequest = last
		}
	}
	return startMs
}

func (c *Collector) probe(ctx context.Context) map[string]DepStatus {
	out := make(map[string]DepStatus, len(c.Probes))
	if len(c.Probes) == 0 {
		return out
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range c.Probes {
		if p.URL == "" {
			continue
		}
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			st := DepStatus{Status: "unreachable"}
			start := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
			if err == nil {
				if resp, err := client.Do(req); err == nil {
					resp.Body.Close()
					st = DepStatus{Status: "reachable", PingMs: since(start)}
				}
			}
			mu.Lock()
			out[p.Name] = st
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}

// DependencyNames returns the report's dependency keys in a stable order.
func (r Report) DependencyNames() []string {
	names := make([]string, 0, len(r.Dependencies))
	for k := range r.Dependencies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func since(start time.Time) *int64 {
	ms := time.Since(start).Milliseconds()
	return &ms
}
