package dispatch

import (
	"context"
	"testing"

	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
)

func benchSession(b *testing.B) *session.Session {
	b.Helper()
	m := session.NewManager(session.Config{Policy: session.PolicyStateless, PreReady: true})
	return m.Acquire("", testCaps)
}

func BenchmarkDispatch(b *testing.B) {
	reg := testRegistry(b)
	d := New(reg, protocol.ServerInfo{Name: "bench", Version: "bench"}, testCaps)
	ctx := context.Background()

	b.Run("CallTool", func(b *testing.B) {
		sess := benchSession(b)
		req := rawBenchReq(protocol.MethodCallTool, `{"name":"echo","value":"hi"}`)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if resp := d.Dispatch(ctx, sess, req); resp.Error != nil {
				b.Fatalf("unexpected error: %v", resp.Error)
			}
		}
	})

	b.Run("ListTools", func(b *testing.B) {
		sess := benchSession(b)
		req := rawBenchReq(protocol.MethodListTools, "")
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if resp := d.Dispatch(ctx, sess, req); resp.Error != nil {
				b.Fatalf("unexpected error: %v", resp.Error)
			}
		}
	})

	b.Run("Ping", func(b *testing.B) {
		sess := benchSession(b)
		req := rawBenchReq(protocol.MethodPing, "")
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if resp := d.Dispatch(ctx, sess, req); resp.Error != nil {
				b.Fatalf("unexpected error: %v", resp.Error)
			}
		}
	})

	b.Run("ConcurrentCallTool", func(b *testing.B) {
		sess := benchSession(b)
		req := rawBenchReq(protocol.MethodCallTool, `{"name":"echo","value":"hi"}`)
		b.ReportAllocs()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if resp := d.Dispatch(ctx, sess, req); resp.Error != nil {
					b.Fatalf("unexpected error: %v", resp.Error)
				}
			}
		})
	})
}

func rawBenchReq(method, params string) *protocol.Request {
	req := &protocol.Request{
		JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
		ID:             protocol.RequestID(`1`),
		Method:         method,
	}
	if params != "" {
		req.Params = []byte(params)
	}
	return req
}
