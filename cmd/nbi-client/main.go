// Command nbi-client is a minimal example client for an NBI gRPC server. It
// connects to an endpoint, builds a small scenario (platforms, nodes, and a
// bidirectional link), then fetches and prints a ScenarioSnapshot.
//
// All NBI message types are loaded at runtime from a descriptor bundle
// (nbi_descriptor.pb), so no generated API code is required.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/dynrpc"
	"github.com/signalsfoundry/nbi-tools/internal/logging"
	"github.com/signalsfoundry/nbi-tools/internal/nbiclient"
	"github.com/signalsfoundry/nbi-tools/internal/observability"
	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type options struct {
	endpoint      string
	transceiverID string
	descriptor    string
	timeout       time.Duration
	skipClear     bool
	topologyPath  string
	metricsAddr   string
	at            string
}

func main() {
	var opts options
	flag.StringVar(&opts.endpoint, "endpoint", "localhost:50051", "NBI gRPC endpoint (host:port)")
	flag.StringVar(&opts.transceiverID, "transceiver-id", "trx-ku", "Transceiver model ID configured on the server")
	flag.StringVar(&opts.descriptor, "descriptor", "nbi_descriptor.pb", "Path to the NBI descriptor bundle")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-RPC timeout")
	flag.BoolVar(&opts.skipClear, "skip-clear", false, "Do not call ScenarioService.ClearScenario first")
	flag.StringVar(&opts.topologyPath, "topology", "", "JSON topology file (default: built-in two-node example)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Optional HTTP address serving Prometheus /metrics while the client runs")
	flag.StringVar(&opts.at, "at", "", "RFC3339 time at which TLE-described platforms are positioned (default: now)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if err := run(ctx, opts, log); err != nil {
		log.Error(ctx, "nbi-client failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewClientCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(opts.metricsAddr, collector, log)
	if metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	reg, err := schema.Load(opts.descriptor)
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(opts.endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(
			dynrpc.RequestIDUnaryClientInterceptor(log),
			collector.UnaryClientInterceptor(),
		),
	)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	client, err := nbiclient.New(conn, reg,
		nbiclient.WithTimeout(opts.timeout),
		nbiclient.WithLogger(log),
		nbiclient.WithMetrics(collector),
	)
	if err != nil {
		return err
	}

	topo, err := loadTopology(opts)
	if err != nil {
		return err
	}

	if !opts.skipClear {
		if err := client.ClearScenario(ctx); err != nil {
			return fmt.Errorf("clear scenario: %w", err)
		}
		log.Info(ctx, "cleared existing scenario")
	}

	if err := client.Apply(ctx, topo, opts.transceiverID); err != nil {
		return err
	}

	snapshot, err := client.GetScenario(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nScenario snapshot:")
	nbiclient.Fprint(os.Stdout, snapshot, "  ")
	return nil
}

func loadTopology(opts options) (*nbiclient.Topology, error) {
	topo := nbiclient.DefaultTopology()
	if opts.topologyPath != "" {
		f, err := os.Open(opts.topologyPath)
		if err != nil {
			return nil, fmt.Errorf("open topology: %w", err)
		}
		defer func() { _ = f.Close() }()
		if topo, err = nbiclient.LoadTopology(f); err != nil {
			return nil, err
		}
	}

	at := time.Now()
	if opts.at != "" {
		parsed, err := time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return nil, fmt.Errorf("parse -at: %w", err)
		}
		at = parsed
	}
	if err := topo.Resolve(at); err != nil {
		return nil, err
	}
	return topo, nil
}

func serveMetrics(addr string, collector *observability.ClientCollector, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
