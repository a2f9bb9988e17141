package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestGeneratedIDLengths(t *testing.T) {
	if id := generateTraceID(); len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
	if id := generateSpanID(); len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Fatal("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}

	_, tc2 := EnsureContext(ctx)
	if tc2.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestMapRoundTrip(t *testing.T) {
	tc := Context{TraceID: "trace123", SpanID: "span456", ParentSpanID: "parent789"}
	m := tc.ToMap()
	if m[ParentSpanIDKey] != "parent789" {
		t.Error("parent span ID mismatch")
	}

	got := FromMap(m)
	if got.TraceID != "trace123" || got.ParentSpanID != "span456" || got.SpanID == "span456" {
		t.Errorf("FromMap() = %+v", got)
	}

	if fresh := FromMap(nil); len(fresh.TraceID) != 32 {
		t.Error("FromMap without trace id should generate one")
	}
}

func TestStartSpan(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "scan_cycle")
	_, child := StartSpan(ctx, "recognize")

	if child.Ctx.TraceID != root.Ctx.TraceID || child.Ctx.ParentSpanID != root.Ctx.SpanID {
		t.Errorf("child span not linked: %+v / %+v", root.Ctx, child.Ctx)
	}

	if root.Duration() != 0 {
		t.Error("unfinished span has no duration")
	}
	child.SetAttr("strategy", "adaptive")
	first := child.End()
	if first < 0 || child.End() != first {
		t.Error("End should keep the first duration")
	}
}

func TestSpanFinishLogsAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, span := StartSpan(context.Background(), "scan_cycle")

	span.SetAttr("mode", "center")
	span.SetAttr("mode", "expanded")
	span.SetAttr("tokens", 4)
	span.Finish(Logger(ctx, base), "Cycle done")

	line := buf.String()
	for _, want := range []string{"msg=\"Cycle done\"", "span.name=scan_cycle", "span.mode=expanded", "span.tokens=4", "trace_id=" + span.Ctx.TraceID} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}
	if strings.Contains(line, "span.mode=center") {
		t.Errorf("replaced attribute still logged: %s", line)
	}

	buf.Reset()
	_, quiet := StartSpan(context.Background(), "recognize")
	quiet.Finish(slog.New(slog.NewTextHandler(&buf, nil)), "Recognition done")
	if buf.Len() != 0 {
		t.Errorf("span logged above debug level: %s", buf.String())
	}
}

func TestLoggerCarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx, span := StartSpan(context.Background(), "scan_cycle")

	Logger(ctx, base).Info("cycle done")

	if !strings.Contains(buf.String(), "trace_id="+span.Ctx.TraceID) {
		t.Errorf("log line missing trace id: %s", buf.String())
	}

	buf.Reset()
	Logger(context.Background(), base).Info("no trace")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("untraced context should not add ids: %s", buf.String())
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceIDKey, "abc")
	req.Header.Set(SpanIDKey, "caller")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc" || seen.ParentSpanID != "caller" {
		t.Errorf("context = %+v", seen)
	}
	if rec.Header().Get(TraceIDKey) != "abc" {
		t.Error("response should echo trace id")
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"pause","trace_id":"t-1"}`))
	if !ok || tc.TraceID != "t-1" {
		t.Errorf("ExtractFromJSON() = %+v, %v", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`{"type":"pause"}`)); ok {
		t.Error("message without trace_id should report false")
	}
	if _, ok := ExtractFromJSON([]byte(`not json`)); ok {
		t.Error("invalid JSON should report false")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, "from-client", SpanIDKey, "client-span")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seen Context
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = FromContext(ctx)
		return "ok", nil
	}

	resp, err := UnaryServerInterceptor(nil)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("interceptor = %v, %v", resp, err)
	}
	if seen.TraceID != "from-client" || seen.ParentSpanID != "client-span" {
		t.Errorf("context = %+v", seen)
	}
}
