package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ClientCollector bundles Prometheus metrics for the NBI client surface and
// provides helpers to wire them into dialed connections and HTTP handlers.
type ClientCollector struct {
	gatherer prometheus.Gatherer

	RPCCalls     *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	SnapshotPlatforms prometheus.Gauge
	SnapshotNodes     prometheus.Gauge
	SnapshotLinks     prometheus.Gauge
}

// NewClientCollector registers client Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewClientCollector(reg prometheus.Registerer) (*ClientCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nbi_client_requests_total",
		Help: "Total number of NBI RPCs issued, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"})
	calls, err := registerCounterVec(reg, calls, "nbi_client_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nbi_client_request_duration_seconds",
		Help:    "NBI RPC round-trip latency in seconds, observed at the client.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"})
	durations, err = registerHistogramVec(reg, durations, "nbi_client_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	platforms, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nbi_snapshot_platforms",
		Help: "Number of platforms in the most recently fetched ScenarioSnapshot.",
	}), "nbi_snapshot_platforms")
	if err != nil {
		return nil, err
	}
	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nbi_snapshot_nodes",
		Help: "Number of network nodes in the most recently fetched ScenarioSnapshot.",
	}), "nbi_snapshot_nodes")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nbi_snapshot_links",
		Help: "Number of links in the most recently fetched ScenarioSnapshot.",
	}), "nbi_snapshot_links")
	if err != nil {
		return nil, err
	}

	return &ClientCollector{
		gatherer:          gatherer,
		RPCCalls:          calls,
		RPCDurations:      durations,
		SnapshotPlatforms: platforms,
		SnapshotNodes:     nodes,
		SnapshotLinks:     links,
	}, nil
}

// UnaryClientInterceptor records call counts and round-trip durations.
func (c *ClientCollector) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		if c == nil {
			return err
		}
		service, methodName := SplitMethod(method)
		if c.RPCCalls != nil {
			c.RPCCalls.WithLabelValues(service, methodName, status.Code(err).String()).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, methodName).Observe(time.Since(start).Seconds())
		}
		return err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ClientCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetSnapshotCounts updates the snapshot gauges after a GetScenario call.
func (c *ClientCollector) SetSnapshotCounts(platforms, nodes, links int) {
	if c == nil {
		return
	}
	if c.SnapshotPlatforms != nil {
		c.SnapshotPlatforms.Set(float64(platforms))
	}
	if c.SnapshotNodes != nil {
		c.SnapshotNodes.Set(float64(nodes))
	}
	if c.SnapshotLinks != nil {
		c.SnapshotLinks.Set(float64(links))
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and
// method components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
