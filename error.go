package rtcan

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrClosed is returned for operations on a closed bus.
var ErrClosed = errors.New("bus closed")

// ErrUnsupported is returned on hosts without SocketCAN.
var ErrUnsupported = errors.New("SocketCAN is not supported on this platform")

type OpenErrorKind int

const (
	SocketCreate OpenErrorKind = iota
	InterfaceNotFound
	FdModeUnsupported
	BindFailed
)

func (k OpenErrorKind) String() string {
	switch k {
	case SocketCreate:
		return "socket create"
	case InterfaceNotFound:
		return "interface not found"
	case FdModeUnsupported:
		return "CAN FD mode unsupported"
	case BindFailed:
		return "bind failed"
	default:
		return "unknown"
	}
}

// OpenError is returned by Open. No descriptor outlives it.
type OpenError struct {
	Kind      OpenErrorKind
	Interface string
	Err       error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: %s", e.Interface, e.Kind)
	}
	return fmt.Sprintf("open %s: %s: %v", e.Interface, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// CloseError is returned by Close. The bus is closed regardless.
type CloseError struct {
	Err error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("close failed: %v", e.Err)
}

func (e *CloseError) Unwrap() error {
	return e.Err
}

type IoErrorKind int

const (
	IoOther IoErrorKind = iota
	IoInterrupted
	IoTimeout
)

func (k IoErrorKind) String() string {
	switch k {
	case IoInterrupted:
		return "interrupted"
	case IoTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// IoError is returned by Read and Write.
type IoError struct {
	Op   string
	Kind IoErrorKind
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// Code returns the errno behind the error, or 0 when there is none.
func (e *IoError) Code() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

func newIoError(op string, err error) *IoError {
	kind := IoOther
	switch {
	case errors.Is(err, syscall.EINTR):
		kind = IoInterrupted
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK):
		kind = IoTimeout
	}
	return &IoError{Op: op, Kind: kind, Err: err}
}

func isOpenKind(err error, kind OpenErrorKind) bool {
	var oe *OpenError
	return errors.As(err, &oe) && oe.Kind == kind
}

func IsInterfaceNotFound(err error) bool { return isOpenKind(err, InterfaceNotFound) }

func IsFdModeUnsupported(err error) bool { return isOpenKind(err, FdModeUnsupported) }

// IsRecoverable reports whether a read or write loop may carry on after err.
// Only interruptions and read timeouts qualify.
func IsRecoverable(err error) bool {
	var ioe *IoError
	if errors.As(err, &ioe) {
		return ioe.Kind == IoInterrupted || ioe.Kind == IoTimeout
	}
	return false
}
