package simd

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/policy"
)

func dialBufconn(t *testing.T, svc *Service, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(opts...)
	NewSimulationGRPCServer(svc).Register(gs)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPCServerAdmitAndSummary(t *testing.T) {
	conn := dialBufconn(t, newTestService(t))

	out, err := invoke(t, conn, "Admit", map[string]any{"time": 0, "source": "A", "destination": "C"})
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	req := out.GetFields()["request"].GetStructValue().GetFields()
	if req["id"].GetStringValue() != "r1" {
		t.Fatalf("unexpected id: %v", req["id"])
	}
	if req["time_cost"].GetNumberValue() != 240 {
		t.Fatalf("expected time cost 240, got %v", req["time_cost"])
	}
	if n := len(req["path"].GetListValue().GetValues()); n != 3 {
		t.Fatalf("expected 3 path nodes, got %d", n)
	}

	out, err = invoke(t, conn, "Admit", map[string]any{"time": 1, "source": "B", "destination": "D"})
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	req = out.GetFields()["request"].GetStructValue().GetFields()
	if req["status"].GetStringValue() != "no_path" {
		t.Fatalf("expected no_path, got %v", req["status"])
	}
	if _, isNull := req["end_time"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("expected null end time, got %v", req["end_time"])
	}

	out, err = invoke(t, conn, "Summary", nil)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	sum := out.GetFields()
	if sum["admitted"].GetNumberValue() != 2 || sum["no_path"].GetNumberValue() != 1 {
		t.Fatalf("unexpected summary: %v", sum)
	}

	out, err = invoke(t, conn, "GetRequest", map[string]any{"id": "r1"})
	if err != nil {
		t.Fatalf("GetRequest error: %v", err)
	}
	if out.GetFields()["destination"].GetStringValue() != "C" {
		t.Fatalf("unexpected request: %v", out)
	}
}

func TestGRPCServerErrors(t *testing.T) {
	conn := dialBufconn(t, newTestService(t))

	tests := []struct {
		name   string
		method string
		in     map[string]any
		code   codes.Code
	}{
		{"missing time", "Admit", map[string]any{"source": "A", "destination": "C"}, codes.InvalidArgument},
		{"time not a number", "Admit", map[string]any{"time": "now", "source": "A", "destination": "C"}, codes.InvalidArgument},
		{"unknown node", "Admit", map[string]any{"time": 0, "source": "A", "destination": "Z"}, codes.InvalidArgument},
		{"missing id", "GetRequest", nil, codes.InvalidArgument},
		{"unknown request", "GetRequest", map[string]any{"id": "r42"}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.method, tt.in)
			if got := status.Code(err); got != tt.code {
				t.Fatalf("expected %v, got %v (%v)", tt.code, got, err)
			}
		})
	}
}

func TestGRPCServerHealth(t *testing.T) {
	conn := dialBufconn(t, newTestService(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}
}

func TestGRPCServerAdmissionLimit(t *testing.T) {
	limiter := policy.NewRateLimiter(1)
	conn := dialBufconn(t, newTestService(t), grpc.UnaryInterceptor(AdmissionLimitInterceptor(limiter)))

	admit := map[string]any{"time": 0, "source": "A", "destination": "C"}
	if _, err := invoke(t, conn, "Admit", admit); err != nil {
		t.Fatalf("first Admit error: %v", err)
	}
	_, err := invoke(t, conn, "Admit", admit)
	if got := status.Code(err); got != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v (%v)", got, err)
	}
	if _, err := invoke(t, conn, "Summary", nil); err != nil {
		t.Fatalf("Summary should not be limited: %v", err)
	}
}
