package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/export"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/policy"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/routing"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/simd"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/topology"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/workload"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/config"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
)

const (
	defaultHTTPAddr = ":8080"
	defaultGRPCAddr = ":50051"
)

type options struct {
	configPath string
	textPath   string
	serve      bool
	httpAddr   string
	grpcAddr   string
	logLevel   string
	geojson    string
	baseline   bool
}

// run replays one scenario and, with -serve, keeps serving it. Exit codes:
// 0 success, 1 runtime or invariant failure, 2 bad input.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("trafficsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML scenario file")
	fs.StringVar(&opts.textPath, "text", "", "text scenario file, - for stdin (default when -config is not set)")
	fs.BoolVar(&opts.serve, "serve", false, "serve the simulator over HTTP and gRPC after the replay")
	fs.StringVar(&opts.httpAddr, "http-addr", "", "HTTP listen address (default "+defaultHTTPAddr+")")
	fs.StringVar(&opts.grpcAddr, "grpc-addr", "", "gRPC listen address (default "+defaultGRPCAddr+")")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.geojson, "geojson", "", "write the network state as GeoJSON to this file after the replay")
	fs.BoolVar(&opts.baseline, "baseline", false, "compute free-flow baseline and congestion delay")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "trafficsim: %v\n", err)
		return 2
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	logger.SetDefault(logger.NewWithFormat(cfg.LogLevel, logger.Format(cfg.LogFormat), stderr))

	sc, err := loadScenario(ctx, opts, cfg, stdin)
	if err != nil {
		logger.Error("failed to load scenario", "error", err)
		return 2
	}
	g := sc.Graph

	simOpts := []engine.Option{}
	if cfg.FreeFlowBaseline || opts.baseline {
		ff, err := routing.NewFreeFlow(g, cfg.Congestion.TimeScaleOrDefault())
		if err != nil {
			logger.Error("failed to build free-flow baseline", "error", err)
			return 1
		}
		simOpts = append(simOpts, engine.WithFreeFlow(ff))
	}
	sim := engine.NewSimulator(g, routing.NewEngine(routing.WithTimeScale(cfg.Congestion.TimeScaleOrDefault())), simOpts...)

	q := engine.NewAdmissionQueue()
	for _, a := range sc.Admissions {
		q.Schedule(engine.Admission{Time: a.Time, Source: a.Source, Destination: a.Destination})
	}
	if cfg.Workload != nil {
		n, err := workload.NewGenerator(cfg.Workload.Seed).ScheduleArrivals(q, *cfg.Workload, g.NodeIDs())
		if err != nil {
			logger.Error("failed to generate workload", "error", err)
			return 2
		}
		logger.Info("workload generated", "admissions", n, "arrival", cfg.Workload.Arrival)
	}

	err = sim.Replay(ctx, q, func(a engine.Admission, o *engine.Outcome, err error) error {
		if err != nil {
			if graph.IsInvariantViolation(err) {
				return err
			}
			logger.Warn("admission rejected", "time", a.Time, "source", a.Source, "destination", a.Destination, "error", err)
			return nil
		}
		printOutcome(stdout, g, o)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("replay failed", "error", err)
		return 1
	}

	proj := export.Identity
	if format := scenarioFormat(cfg); format == config.FormatOSM || format == config.FormatPBF {
		proj = export.FromMercatorKM
	}
	if opts.geojson != "" {
		if err := writeGeoJSON(opts.geojson, export.New(g, proj)); err != nil {
			logger.Error("failed to write GeoJSON", "path", opts.geojson, "error", err)
			return 1
		}
	}

	sum := sim.Summary()
	logger.Info("simulation finished",
		"admitted", sum.Admitted,
		"routed", sum.Routed,
		"no_path", sum.NoPath,
		"arrived", sum.Arrived,
		"clock", sum.Clock)

	if !opts.serve {
		return 0
	}
	return serve(ctx, simd.NewService(sim, proj), resolveAddrs(opts, cfg))
}

func loadConfig(opts options) (*config.Config, error) {
	if opts.configPath != "" {
		if opts.textPath != "" {
			return nil, errors.New("-config and -text are mutually exclusive")
		}
		return config.LoadConfig(opts.configPath)
	}
	return &config.Config{
		LogLevel:  "warn",
		LogFormat: string(logger.FormatText),
		Topology:  config.Topology{Format: config.FormatText},
	}, nil
}

func loadScenario(ctx context.Context, opts options, cfg *config.Config, stdin io.Reader) (*topology.Scenario, error) {
	gopts := []graph.Option{graph.WithCongestionCoefficient(cfg.Congestion.CoefficientOrDefault())}

	if opts.configPath != "" {
		sc, err := topology.Load(ctx, cfg.Topology, gopts...)
		if err != nil {
			return nil, err
		}
		sc.Admissions = append(sc.Admissions, cfg.Admissions...)
		return sc, nil
	}

	if opts.textPath == "" || opts.textPath == "-" {
		return topology.ReadText(stdin, gopts...)
	}
	f, err := os.Open(opts.textPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return topology.ReadText(f, gopts...)
}

func scenarioFormat(cfg *config.Config) string {
	if cfg.Topology.Format != "" || cfg.Topology.File == "" {
		return cfg.Topology.Format
	}
	return config.FormatFromPath(cfg.Topology.File)
}

// printOutcome writes one admission in the line format of the text scenarios
func printOutcome(w io.Writer, g *graph.Graph, o *engine.Outcome) {
	r := o.Request
	if len(r.Nodes) == 0 {
		fmt.Fprintln(w, "there is no path")
		return
	}
	var b strings.Builder
	for _, n := range r.Nodes {
		b.WriteString(g.Node(n).ID)
		b.WriteByte(' ')
	}
	fmt.Fprintf(w, "path : %s\n", b.String())
	fmt.Fprintf(w, "cost : %s minutes\n", strconv.FormatFloat(r.TimeCost, 'f', -1, 64))
}

func writeGeoJSON(path string, x *export.Exporter) error {
	data, err := x.Network().MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type addrs struct {
	http      string
	grpc      string
	rateLimit int
}

func resolveAddrs(opts options, cfg *config.Config) addrs {
	a := addrs{http: defaultHTTPAddr, grpc: defaultGRPCAddr}
	if cfg.Server != nil {
		a.rateLimit = cfg.Server.AdmissionRateLimit
		if cfg.Server.HTTPAddr != "" {
			a.http = cfg.Server.HTTPAddr
		}
		if cfg.Server.GRPCAddr != "" {
			a.grpc = cfg.Server.GRPCAddr
		}
	}
	if opts.httpAddr != "" {
		a.http = opts.httpAddr
	}
	if opts.grpcAddr != "" {
		a.grpc = opts.grpcAddr
	}
	return a
}

// serve blocks until ctx is done, then shuts both servers down
func serve(ctx context.Context, svc *simd.Service, a addrs) int {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	limiter := policy.NewRateLimiter(a.rateLimit)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(simd.AdmissionLimitInterceptor(limiter)))
	simd.NewSimulationGRPCServer(svc).Register(grpcServer)

	grpcLis, err := net.Listen("tcp", a.grpc)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", a.grpc, "error", err)
		return 1
	}

	httpSrv := &http.Server{
		Addr:              a.http,
		Handler:           simd.NewHTTPServer(svc, simd.WithRateLimiter(limiter)).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", a.grpc)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", a.http)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
		return 1
	}
	return 0
}
