// Package dynrpc issues unary gRPC calls with request and response messages
// built at runtime from a descriptor bundle, rather than from generated stubs.
// The standard grpc proto codec handles dynamic messages transparently, so an
// Invoker is just a thin deadline-and-error-taxonomy wrapper around
// ClientConn.Invoke.
package dynrpc

import (
	"context"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// DefaultTimeout bounds each call when no explicit timeout is configured.
const DefaultTimeout = 10 * time.Second

// Invoker executes synchronous unary RPCs over an established channel. One
// attempt per call; retry policy belongs to the caller.
type Invoker struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
	log     logging.Logger
}

// Option customises an Invoker.
type Option func(*Invoker)

// WithTimeout sets the per-call deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		if d > 0 {
			inv.timeout = d
		}
	}
}

// WithLogger attaches a structured logger for per-call debug output.
func WithLogger(log logging.Logger) Option {
	return func(inv *Invoker) {
		if log != nil {
			inv.log = log
		}
	}
}

// NewInvoker wraps an established connection.
func NewInvoker(conn grpc.ClientConnInterface, opts ...Option) *Invoker {
	inv := &Invoker{
		conn:    conn,
		timeout: DefaultTimeout,
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Timeout reports the configured per-call deadline.
func (inv *Invoker) Timeout() time.Duration { return inv.timeout }

// Invoke serializes req, issues the unary call named by method (e.g.
// "/pkg.Service/Method"), and blocks until resp is populated, the deadline
// elapses, or the call fails. Errors are classified as ErrTimeout,
// ErrTransport, or *StatusError.
func (inv *Invoker) Invoke(ctx context.Context, method string, req, resp proto.Message) error {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	err := inv.conn.Invoke(ctx, method, req, resp)
	inv.log.Debug(ctx, "unary call finished",
		logging.String("method", method),
		logging.String("duration", time.Since(start).String()),
		logging.Any("ok", err == nil),
	)
	return classify(method, err)
}
