package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates a request across log lines, exported spans and the
// client, which receives both ids as response headers.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// LogFields returns the correlation key/value pairs known for ctx, ready to be
// appended to a logger call. The slice is always freshly allocated.
func LogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			fields = append(fields, "request_id", td.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil && rd.UserID != "" {
		fields = append(fields, "user_id", rd.UserID, "role", rd.Role)
	}
	return fields
}
