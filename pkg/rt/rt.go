// Package rt prepares a process and its threads for realtime CAN traffic:
// locked memory, a prefaulted heap, SCHED_FIFO threads and a monotonic
// clock with absolute sleeps.
package rt

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned where the host cannot provide the requested
// realtime behaviour.
var ErrUnsupported = errors.New("realtime scheduling is not supported on this platform")

// MaxPriority is the highest SCHED_FIFO priority on Linux.
const MaxPriority = 99

var prefaulted []byte

// PrefaultHeap allocates size bytes and writes one byte per page so the
// memory is resident before the first realtime loop touches it. The buffer
// is kept alive for the life of the process.
func PrefaultHeap(size int) {
	if size <= 0 {
		return
	}
	buf := make([]byte, size)
	page := os.Getpagesize()
	for i := 0; i < len(buf); i += page {
		buf[i] = 1
	}
	prefaulted = buf
}

func checkPriority(priority int) error {
	if priority < 0 || priority > MaxPriority {
		return fmt.Errorf("priority %d out of range [0, %d]", priority, MaxPriority)
	}
	return nil
}
