//go:build linux

package rt

import (
	"errors"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	schedOther = 0
	schedFIFO  = 1
)

// LockMemory locks all current and future pages of the process in RAM.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}

// PinThread locks the calling goroutine to its OS thread and, for a
// priority above zero, switches that thread to SCHED_FIFO. The returned
// func puts the thread back to SCHED_OTHER before handing it back to the Go
// scheduler; it must be called from the same goroutine. When the policy
// cannot be restored the thread stays locked and exits with the goroutine.
func PinThread(priority int) (func(), error) {
	if err := checkPriority(priority); err != nil {
		return nil, err
	}
	runtime.LockOSThread()
	if priority == 0 {
		return runtime.UnlockOSThread, nil
	}
	if err := setPolicy(schedFIFO, priority); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("sched_setattr SCHED_FIFO %d: %w", priority, err)
	}
	return func() {
		if err := setPolicy(schedOther, 0); err != nil {
			return
		}
		runtime.UnlockOSThread()
	}, nil
}

// setPolicy changes the scheduling policy of the calling thread.
func setPolicy(policy uint32, priority int) error {
	attr := unix.SchedAttr{
		Policy:   policy,
		Priority: uint32(priority),
	}
	attr.Size = uint32(unsafe.Sizeof(attr))
	return unix.SchedSetAttr(0, &attr, 0)
}

// Monotonic reads CLOCK_MONOTONIC.
func Monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(fmt.Sprintf("clock_gettime CLOCK_MONOTONIC: %v", err))
	}
	return time.Duration(ts.Nano())
}

// Sleep blocks the calling thread for d on CLOCK_MONOTONIC. Signals do not
// shorten the sleep.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := unix.NsecToTimespec(int64(Monotonic() + d))
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &deadline, nil)
		if !errors.Is(err, unix.EINTR) {
			return
		}
	}
}
