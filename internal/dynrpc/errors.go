package dynrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrTimeout marks calls that exceeded the configured per-call deadline.
	ErrTimeout = errors.New("rpc deadline exceeded")
	// ErrTransport marks network-level failures (unreachable endpoint,
	// broken connection, cancelled transport).
	ErrTransport = errors.New("rpc transport failure")
)

// StatusError carries a remote application-level rejection: the server
// answered, and said no. Callers can branch on Code().
type StatusError struct {
	method string
	st     *status.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc %s rejected: %s: %s", e.method, e.st.Code(), e.st.Message())
}

// Code returns the gRPC status code reported by the server.
func (e *StatusError) Code() codes.Code { return e.st.Code() }

// Message returns the server-supplied status message.
func (e *StatusError) Message() string { return e.st.Message() }

// GRPCStatus keeps status.FromError working on wrapped errors.
func (e *StatusError) GRPCStatus() *status.Status { return e.st }

// classify maps a raw gRPC call error onto the package taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, method, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %s", ErrTimeout, method, st.Message())
	case codes.Unavailable, codes.Canceled:
		return fmt.Errorf("%w: %s: %s", ErrTransport, method, st.Message())
	default:
		return &StatusError{method: method, st: st}
	}
}
