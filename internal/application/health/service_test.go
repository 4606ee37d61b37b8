package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func TestCollect_WithNothingConfigured(t *testing.T) {
	c := &Collector{}
	r := c.Collect(context.Background())
	assert.Equal(t, "issue", r.Status)
	assert.Equal(t, "disconnected", r.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", r.Dependencies["redis"].Status)
	assert.Equal(t, 0, r.Traffic.TotalRequests)
	assert.Equal(t, "100", r.Traffic.SuccessRate)
}

func TestCollect_WithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	c := &Collector{Rdb: rdb, DB: pinger{}}
	r := c.Collect(ctx)
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, "connected", r.Dependencies["redis"].Status)
	assert.True(t, mr.Exists("health:global:start_time"))

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:last_request", `{"method":"GET","path":"/api/v1/thrift"}`, 0).Err())

	r = c.Collect(ctx)
	assert.Equal(t, 10, r.Traffic.TotalRequests)
	assert.Equal(t, 2, r.Traffic.FailedCount)
	assert.Equal(t, 8, r.Traffic.SuccessCount)
	assert.Equal(t, "80.0", r.Traffic.SuccessRate)
	assert.Equal(t, "15.05", r.Traffic.AvgResponseTime)
	assert.Equal(t, "/api/v1/thrift", r.Traffic.LastRequest["path"])
}

func TestCollect_DBErrorAndProbes(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	c := &Collector{
		DB:     pinger{err: errors.New("refused")},
		Probes: []Probe{{Name: "supabase", URL: up.URL}, {Name: "frontend", URL: down.URL}},
	}
	r := c.Collect(context.Background())
	assert.Equal(t, "error", r.Dependencies["database"].Status)
	assert.Equal(t, "reachable", r.Dependencies["supabase"].Status)
	assert.Equal(t, "unreachable", r.Dependencies["frontend"].Status)
	assert.Equal(t, []string{"database", "frontend", "redis", "supabase"}, r.DependencyNames())
}

func TestRenderDashboardHTML(t *testing.T) {
	c := &Collector{}
	html, err := RenderDashboardHTML(c.Collect(context.Background()))
	require.NoError(t, err)
	assert.Contains(t, html, "Find On LU")
	assert.Contains(t, html, "System Issues Detected")
	assert.Contains(t, html, "database")
}
