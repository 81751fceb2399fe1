package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"hydrocore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status && (predicate == nil || predicate(entry)) {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) contains(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

func TestServiceObservabilityHooks(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}
	svc := NewInMemoryService(nil,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(logger),
	)

	node, _, err := svc.CreateNode(ctx, domain.Node{Name: "a"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	if !audit.has("create_node", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == node.ID && e.Entity == domain.EntityNode && e.Action == domain.ActionCreate
	}) {
		t.Fatalf("expected audit entry for create_node, got %+v", audit.entries)
	}
	if !metrics.has("create_node", true) {
		t.Fatalf("expected metrics for create_node")
	}

	if _, err := svc.DeleteBranch(ctx, "missing"); err == nil {
		t.Fatalf("expected delete_branch to fail")
	}
	if !audit.has("delete_branch", AuditStatusError, func(e AuditEntry) bool { return e.EntityID == "missing" && e.Error != "" }) {
		t.Fatalf("expected audit error for delete_branch")
	}
	if !metrics.has("delete_branch", false) {
		t.Fatalf("expected failed metrics for delete_branch")
	}
	last := tracer.ended[len(tracer.ended)-1]
	if last.op != "delete_branch" || !errors.Is(last.err, domain.ErrNotFound) {
		t.Fatalf("expected failing delete_branch span, got %+v", last)
	}
	if !logger.contains("e:operation failed") {
		t.Fatalf("expected error log, got %v", logger.calls)
	}

	_, _, err = svc.CreateBranch(ctx, domain.Branch{Name: "loop", SourceNodeID: node.ID, TargetNodeID: node.ID, Length: 1})
	if err == nil {
		t.Fatalf("expected rule violation")
	}
	if !logger.contains("w:operation blocked by rules") {
		t.Fatalf("expected blocked warning, got %v", logger.calls)
	}
}

func TestRecordAuditSuccessUsesMetadata(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	recorder := &captureAuditRecorder{}
	svc := NewInMemoryService(nil, WithAuditRecorder(recorder), WithClock(ClockFunc(func() time.Time { return fixed })))

	svc.recordAuditSuccess(context.Background(), "split_branch", "b-1", 42*time.Millisecond)
	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Entity != domain.EntityBranch || entry.Action != domain.ActionCreate || entry.EntityID != "b-1" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Duration != 42*time.Millisecond || !entry.Timestamp.Equal(fixed) || entry.Status != AuditStatusSuccess {
		t.Fatalf("unexpected entry %+v", entry)
	}

	svc.recordAuditSuccess(context.Background(), "unknown_operation", "x", time.Second)
	if len(recorder.entries) != 1 {
		t.Fatalf("unknown operations must not be audited")
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")

	noopAuditRecorder{}.Record(context.Background(), AuditEntry{})
	noopMetricsRecorder{}.Observe(context.Background(), "noop", true, 0)

	ctx, span := noopTracer{}.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(nil)

	if ClockFunc(nil).Now().Location() != time.UTC {
		t.Fatalf("nil ClockFunc should report UTC")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "create_node", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "create_node", false, 6*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	stats := rec.Snapshot().Operations
	if len(stats) != 1 {
		t.Fatalf("expected one operation, got %+v", stats)
	}
	got := stats["create_node"]
	if got.Successes != 1 || got.Errors != 1 || got.TotalMS != 8 || got.MaxMS != 6 {
		t.Fatalf("unexpected stats %+v", got)
	}

	published := expvar.Get(rec.Name())
	if published == nil {
		t.Fatalf("recorder not published under %s", rec.Name())
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(published.String()), &decoded); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if decoded.Operations["create_node"].Errors != 1 {
		t.Fatalf("unexpected published snapshot %+v", decoded)
	}
}

func TestJSONTracerWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(NewRulesEngine(), WithTracer(tracer))
	if _, _, err := svc.CreateNode(context.Background(), domain.Node{Name: "a"}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if _, err := svc.DeleteNode(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}
	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "create_node" || entries[0].Status != "success" || entries[0].Seq != 1 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", lines)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(NewRulesEngine(), WithMetricsRecorder(rec))
	if _, _, err := svc.CreateNode(context.Background(), domain.Node{Name: "a"}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if got := promtestutil.ToFloat64(rec.operations.WithLabelValues("create_node", "success")); got != 1 {
		t.Fatalf("expected 1 successful create_node, got %v", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestOTelTracerEndsSpans(t *testing.T) {
	tracer := NewOTelTracerFrom(tracenoop.NewTracerProvider(), "")
	svc := NewInMemoryService(NewRulesEngine(), WithTracer(tracer))
	if _, _, err := svc.CreateNode(context.Background(), domain.Node{Name: "a"}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	ctx, span := tracer.Start(context.Background(), "manual")
	if ctx == nil {
		t.Fatalf("expected context")
	}
	span.End(errors.New("boom"))
}
