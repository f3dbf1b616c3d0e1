package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamiat-it/tracker-mcp/pkg/dispatch"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
)

// Middleware returns dispatch middleware that opens a span per request and
// records request metrics. Either provider may be nil.
func Middleware(tracer trace.Tracer, metrics *Metrics) dispatch.Middleware {
	return func(next dispatch.Func) dispatch.Func {
		return func(ctx context.Context, sess *session.Session, req *protocol.Request) *protocol.Response {
			start := time.Now()

			if tracer != nil {
				var span trace.Span
				ctx, span = tracer.Start(ctx, "mcp.dispatch "+req.Method,
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(
						attribute.String("mcp.method", req.Method),
						attribute.String("mcp.session_id", sess.ID()),
						attribute.Bool("mcp.notification", req.IsNotification()),
					),
				)
				defer span.End()

				resp := next(ctx, sess, req)
				annotateSpan(span, resp)
				record(metrics, req.Method, resp, time.Since(start))
				return resp
			}

			resp := next(ctx, sess, req)
			record(metrics, req.Method, resp, time.Since(start))
			return resp
		}
	}
}

func annotateSpan(span trace.Span, resp *protocol.Response) {
	if resp == nil || resp.Error == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetStatus(codes.Error, resp.Error.Message)
	span.SetAttributes(attribute.Int("mcp.error_code", resp.Error.Code))
}

func record(metrics *Metrics, method string, resp *protocol.Response, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	status := "ok"
	if resp != nil && resp.Error != nil {
		status = strconv.Itoa(resp.Error.Code)
	}
	metrics.RecordRequest(method, status, elapsed)
}
