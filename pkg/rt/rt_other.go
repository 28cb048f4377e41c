//go:build !linux

package rt

import (
	"runtime"
	"time"
)

var epoch = time.Now()

func LockMemory() error {
	return ErrUnsupported
}

func PinThread(priority int) (func(), error) {
	if err := checkPriority(priority); err != nil {
		return nil, err
	}
	if priority > 0 {
		return nil, ErrUnsupported
	}
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}

func Monotonic() time.Duration {
	return time.Since(epoch)
}

func Sleep(d time.Duration) {
	time.Sleep(d)
}
