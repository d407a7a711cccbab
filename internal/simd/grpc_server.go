package simd

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/policy"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "trafficsim.v1.Simulator"

// SimulatorServer is the gRPC surface. Messages are google.protobuf.Struct
// documents with the same field names as the HTTP JSON bodies.
type SimulatorServer interface {
	Admit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SimulatorServiceDesc describes SimulatorServer for grpc.Server.RegisterService
var SimulatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Admit", Handler: unaryHandler("Admit", SimulatorServer.Admit)},
		{MethodName: "GetRequest", Handler: unaryHandler("GetRequest", SimulatorServer.GetRequest)},
		{MethodName: "Summary", Handler: unaryHandler("Summary", SimulatorServer.Summary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trafficsim/v1/simulator.proto",
}

func unaryHandler(method string, call func(SimulatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SimulatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SimulationGRPCServer implements SimulatorServer on a Service
type SimulationGRPCServer struct {
	service *Service
}

// NewSimulationGRPCServer creates a new SimulationGRPCServer
func NewSimulationGRPCServer(service *Service) *SimulationGRPCServer {
	return &SimulationGRPCServer{service: service}
}

// Register adds the simulator and the standard health service to s
func (s *SimulationGRPCServer) Register(gs *grpc.Server) *health.Server {
	gs.RegisterService(&SimulatorServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

func (s *SimulationGRPCServer) Admit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	t, ok := fields["time"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "time is required")
	}

	res, err := s.service.Admit(t.NumberValue, fields["source"].GetStringValue(), fields["destination"].GetStringValue())
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}

	logger.Debug("request admitted (gRPC)", "request_id", res.Request.ID, "status", res.Request.Status)
	return toStruct(res)
}

func (s *SimulationGRPCServer) GetRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	view, err := s.service.Request(id)
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}
	return toStruct(view)
}

func (s *SimulationGRPCServer) Summary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.service.Summary())
}

// toStruct converts a JSON-tagged value into a Struct via its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return codes.NotFound
	case errors.Is(err, ErrMissingNode), errors.Is(err, engine.ErrInvalidTime), graph.IsConfigError(err):
		return codes.InvalidArgument
	case graph.IsInvariantViolation(err):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// AdmissionLimitInterceptor applies l to Admit calls, keyed by peer host
func AdmissionLimitInterceptor(l *policy.RateLimiter) grpc.UnaryServerInterceptor {
	admit := "/" + ServiceName + "/Admit"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == admit {
			key := "unknown"
			if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
				key = clientKey(p.Addr.String())
			}
			if !l.Allow(key) {
				return nil, status.Error(codes.ResourceExhausted, "admission rate limit exceeded")
			}
		}
		return handler(ctx, req)
	}
}

var _ SimulatorServer = (*SimulationGRPCServer)(nil)
