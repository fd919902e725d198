package observability

import (
	"net/http"
	"strings"

	"github.com/heshammera/orderly-shop-sub002/internal/platform/requestctx"
)

const cloudTraceHeader = "X-Cloud-Trace-Context"

// ExtractTrace parses the Cloud Trace context header into TraceInfo.
// The header format is TRACE_ID/SPAN_ID;o=OPTIONS.
func ExtractTrace(r *http.Request) (requestctx.TraceInfo, bool) {
	raw := strings.TrimSpace(r.Header.Get(cloudTraceHeader))
	if raw == "" {
		return requestctx.TraceInfo{}, false
	}
	rest := raw
	sampled := false
	if idx := strings.Index(rest, ";"); idx >= 0 {
		opts := rest[idx+1:]
		rest = rest[:idx]
		sampled = strings.Contains(opts, "o=1")
	}
	traceID := rest
	spanID := ""
	if idx := strings.Index(rest, "/"); idx >= 0 {
		traceID = rest[:idx]
		spanID = rest[idx+1:]
	}
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		return requestctx.TraceInfo{}, false
	}
	return requestctx.TraceInfo{
		TraceID: traceID,
		SpanID:  strings.TrimSpace(spanID),
		Sampled: sampled,
	}, true
}
