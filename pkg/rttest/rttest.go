// Package rttest drives a CAN bus with a periodic transmitter and a
// receiver, printing timestamped frames, to check the realtime behaviour of
// the CAN stack.
package rttest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/roffe/rtcan"
	"github.com/roffe/rtcan/pkg/rt"
)

var ErrNothingToDo = errors.New("at least one of TX and RX must be enabled")

// Bus is the part of *rtcan.Bus the loops use.
type Bus interface {
	Read(f *rtcan.Frame) (int, error)
	Write(f *rtcan.Frame) (int, error)
}

// Clock is the time source of the loops.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

type monotonicClock struct{}

func (monotonicClock) Now() time.Duration    { return rt.Monotonic() }
func (monotonicClock) Sleep(d time.Duration) { rt.Sleep(d) }

type Config struct {
	// TX enables the transmit loop sending Frame.
	TX    bool
	Frame rtcan.Frame
	// FD selects CAN FD notation for printed frames.
	FD bool
	// Interval between transmissions. Zero sends a single frame.
	Interval time.Duration
	RX       bool
	// Verbose prints every transmitted frame. Received frames are always
	// printed.
	Verbose bool
	// Detail prints frames as id, length, hex and ASCII columns instead of
	// can-utils notation.
	Detail bool
	Color  bool
	// Priority is the SCHED_FIFO priority of both loop threads; 0 leaves
	// the scheduling policy alone.
	Priority int
	Out      io.Writer
}

func (c Config) Validate() error {
	if !c.TX && !c.RX {
		return ErrNothingToDo
	}
	if c.Interval < 0 {
		return fmt.Errorf("negative TX interval %s", c.Interval)
	}
	if c.Priority < 0 || c.Priority > rt.MaxPriority {
		return fmt.Errorf("priority %d out of range [0, %d]", c.Priority, rt.MaxPriority)
	}
	return nil
}

// Summary counts what a run did.
type Summary struct {
	Sent     uint64
	Dropped  uint64
	Overruns uint64
	Received uint64
}

func (s Summary) String() string {
	return fmt.Sprintf("sent: %d dropped: %d overruns: %d received: %d", s.Sent, s.Dropped, s.Overruns, s.Received)
}

// stamp renders d as [seconds.microseconds].
func stamp(d time.Duration) string {
	return fmt.Sprintf("[%6d.%06d]", d/time.Second, (d%time.Second)/time.Microsecond)
}
