package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstruments(t *testing.T) {
	m := New()
	m.Operation("create_event", "ok")
	m.Operation("create_event", "ok")
	m.Operation("update_event", "not_found")
	m.Saved("events", 3*time.Millisecond, 12)
	m.Archived("dir", nil)
	m.Archived("s3", errors.New("denied"))

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_event", "ok")); got != 2 {
		t.Errorf("create_event ok = %v", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("events")); got != 12 {
		t.Errorf("records = %v", got)
	}
	if got := testutil.ToFloat64(m.archives.WithLabelValues("s3", "error")); got != 1 {
		t.Errorf("s3 errors = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("x", "ok")
	m.Saved("events", time.Second, 1)
	m.Archived("dir", nil)
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.Operation("undo", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `area710_operations_total{operation="undo",result="ok"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}
