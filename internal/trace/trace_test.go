package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

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

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	_, tc2 := EnsureContext(ctx)
	if tc2.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestWithSession(t *testing.T) {
	ctx := WithSession(context.Background(), "sess-1")
	if got := SessionID(ctx); got != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", got)
	}
	if SessionID(context.Background()) != "" {
		t.Error("empty context should carry no session")
	}
	Logger(ctx).Info("logger with session")
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "parent")
	_, child := StartSpan(ctx, "child")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be parent's span")
	}

	child.SetAttr("question", 2)
	child.End()
	if child.Attr("question") != 2 {
		t.Error("span attribute mismatch")
	}
	if child.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestMiddlewarePropagatesHeaders(t *testing.T) {
	var got Context
	var session string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		session = SessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(TraceIDKey, "abc")
	req.Header.Set(SpanIDKey, "parent")
	req.Header.Set(SessionIDKey, "s-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc" || got.ParentSpanID != "parent" {
		t.Errorf("unexpected trace context: %+v", got)
	}
	if session != "s-9" {
		t.Errorf("session = %q, want s-9", session)
	}
}

func TestInject(t *testing.T) {
	ctx := WithSession(WithContext(context.Background(), Context{TraceID: "t", SpanID: "s"}), "sess")
	req := httptest.NewRequest(http.MethodPost, "/x", http.NoBody)
	Inject(ctx, req)

	if req.Header.Get(TraceIDKey) != "t" || req.Header.Get(SessionIDKey) != "sess" {
		t.Errorf("headers not injected: %v", req.Header)
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"input","trace_id":"xyz"}`))
	if !ok || tc.TraceID != "xyz" {
		t.Errorf("ExtractFromJSON = %+v, %v", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`{"type":"input"}`)); ok {
		t.Error("missing trace_id should report false")
	}
}

func TestExtractMetadata(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, "trace-1", SessionIDKey, "sess-2")
	ctx := extractMetadata(metadata.NewIncomingContext(context.Background(), md))

	tc, ok := FromContext(ctx)
	if !ok || tc.TraceID != "trace-1" {
		t.Errorf("trace context = %+v, %v", tc, ok)
	}
	if SessionID(ctx) != "sess-2" {
		t.Error("session id should be extracted from metadata")
	}
}
