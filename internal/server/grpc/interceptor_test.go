package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type entry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (r *recordingLogger) log(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{level, msg, args})
}

func (r *recordingLogger) Debug(_ context.Context, msg string, args ...any) {
	r.log("debug", msg, args)
}
func (r *recordingLogger) Info(_ context.Context, msg string, args ...any) { r.log("info", msg, args) }
func (r *recordingLogger) Warn(_ context.Context, msg string, args ...any) { r.log("warn", msg, args) }
func (r *recordingLogger) Error(_ context.Context, msg string, args ...any) {
	r.log("error", msg, args)
}
func (r *recordingLogger) With(...any) logging.Logger { return r }

func TestInterceptor_PassesThroughAndLogs(t *testing.T) {
	l := &recordingLogger{}
	s := &HealthServer{logger: l}

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if len(l.entries) != 1 || l.entries[0].level != "debug" {
		t.Fatalf("expected one debug entry, got %+v", l.entries)
	}
}

func TestInterceptor_LogsFailures(t *testing.T) {
	l := &recordingLogger{}
	s := &HealthServer{logger: l}

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	_, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if len(l.entries) != 1 || l.entries[0].level != "warn" {
		t.Fatalf("expected one warn entry, got %+v", l.entries)
	}
}
