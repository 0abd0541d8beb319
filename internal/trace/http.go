// Package trace - HTTP/WebSocket helpers for trace propagation.
package trace

import (
	"context"
	"encoding/json"
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), extractFromHeaders(r))
		if id := r.Header.Get(SessionIDKey); id != "" {
			ctx = WithSession(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractFromHeaders(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}

// Inject writes the trace and session ids of ctx onto an outgoing request.
func Inject(ctx context.Context, req *http.Request) {
	if tc, ok := FromContext(ctx); ok {
		for k, v := range tc.Headers() {
			req.Header.Set(k, v)
		}
	}
	if id := SessionID(ctx); id != "" {
		req.Header.Set(SessionIDKey, id)
	}
}

// ExtractFromJSON extracts trace_id from a WebSocket JSON message.
// Returns a child context and whether a trace_id was found.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{TraceID: msg.TraceID, SpanID: generateSpanID()}, true
}
