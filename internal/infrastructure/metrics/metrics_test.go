package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"plant-monitor/internal/domain/entity"
)

func TestObserveScan(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveScan(entity.ScanResult{Outcome: entity.Healthy(), StartedAt: start, FinishedAt: start.Add(time.Second)})
	m.ObserveScan(entity.ScanResult{Outcome: entity.Failed(entity.OutcomeImageUnavailable), WriteErr: errors.New("offline")})

	require.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("no_unhealthy_region")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("image_unavailable")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.writeFailures))
}

func TestQueueAndTriggers(t *testing.T) {
	m := New()
	m.SetQueueDepth(3)
	m.TaskRejected("timer")
	m.TriggerReceived("sweep")
	m.ObserveSweep(4)

	require.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("timer")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.triggers.WithLabelValues("sweep")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sweeps))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSweep(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "plant_monitor_sweeps_total 1")
}
