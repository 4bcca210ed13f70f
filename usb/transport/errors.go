package transport

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Sentinel errors for caller mistakes, as opposed to kernel failures.
var (
	// ErrInvalidArgument means a query was given an out of range port or
	// connection index.
	ErrInvalidArgument = errors.New("invalid device argument")

	// ErrInvalidHandle means the transport has no usable device handle,
	// because opening failed or it was already closed.
	ErrInvalidHandle = errors.New("invalid device handle")
)

// IOError is a kernel request failure with the operating system's error
// code attached when one is known.
type IOError struct {
	Op   string
	Code uint32
	Err  error
}

func (e *IOError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failed with code %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ioError wraps a kernel failure, pulling the OS error number out when the
// cause carries one.
func ioError(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &IOError{Op: op, Code: uint32(errno), Err: err}
	}
	return &IOError{Op: op, Err: err}
}
