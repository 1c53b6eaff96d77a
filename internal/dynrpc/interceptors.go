package dynrpc

import (
	"context"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// RequestIDUnaryClientInterceptor stamps every outbound call with an
// x-request-id header, sourcing the ID from the context when present and
// minting one otherwise, and debug-logs each call outcome.
func RequestIDUnaryClientInterceptor(base logging.Logger) grpc.UnaryClientInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, reqID := logging.EnsureRequestID(ctx)
		ctx = metadata.AppendToOutgoingContext(ctx, requestIDMetadataKey, reqID)

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		base.Debug(ctx, "rpc call",
			logging.String("method", method),
			logging.String("request_id", reqID),
			logging.String("code", status.Code(err).String()),
			logging.String("duration", time.Since(start).String()),
		)
		return err
	}
}
