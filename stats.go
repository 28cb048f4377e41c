package rtcan

import (
	"fmt"

	"go.uber.org/atomic"
)

type Stats struct {
	RecvFrames    uint64
	RecvBytes     uint64
	SentFrames    uint64
	SentBytes     uint64
	DroppedFrames uint64
	Errors        uint64
	FilterErrors  uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("recv: %d (%d bytes) sent: %d (%d bytes) dropped: %d errors: %d",
		st.RecvFrames, st.RecvBytes, st.SentFrames, st.SentBytes, st.DroppedFrames, st.Errors)
}

type counters struct {
	recvFrames   atomic.Uint64
	recvBytes    atomic.Uint64
	sentFrames   atomic.Uint64
	sentBytes    atomic.Uint64
	dropped      atomic.Uint64
	errors       atomic.Uint64
	filterErrors atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RecvFrames:    c.recvFrames.Load(),
		RecvBytes:     c.recvBytes.Load(),
		SentFrames:    c.sentFrames.Load(),
		SentBytes:     c.sentBytes.Load(),
		DroppedFrames: c.dropped.Load(),
		Errors:        c.errors.Load(),
		FilterErrors:  c.filterErrors.Load(),
	}
}
