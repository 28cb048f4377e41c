package rttest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// sleepSlice bounds one uninterruptible sleep so cancellation is seen within
// that time even for long TX intervals.
const sleepSlice = 100 * time.Millisecond

func (r *Runner) txLoop(ctx context.Context) error {
	release, err := r.pin(r.cfg.Priority)
	if err != nil {
		return fmt.Errorf("TX thread: %w", err)
	}
	defer release()

	frame := r.cfg.Frame
	for {
		if ctx.Err() != nil {
			return nil
		}
		start := r.clock.Now()
		n, err := r.bus.Write(&frame)
		if err != nil {
			return fmt.Errorf("can write: %w", err)
		}
		if n == 0 {
			r.dropped.Inc()
			r.log.Debug("TX queue full, frame dropped")
		} else {
			r.sent.Inc()
		}
		if r.cfg.Verbose {
			r.printf("%s %s %s\n", stamp(start), r.txTag("TX:"), r.format(&frame))
		}
		if r.cfg.Interval == 0 {
			return nil
		}

		elapsed := r.clock.Now() - start
		if elapsed > r.cfg.Interval {
			r.overruns.Inc()
			r.printf("%s\n", r.warn(fmt.Sprintf("Elapsed time (%s) greater than TX interval. Skipping sleep!", stamp(elapsed))))
			r.log.Debug("TX overrun", zap.Duration("elapsed", elapsed), zap.Duration("interval", r.cfg.Interval))
			continue
		}
		r.sleep(ctx, r.cfg.Interval-elapsed)
	}
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	for d > sleepSlice {
		if ctx.Err() != nil {
			return
		}
		r.clock.Sleep(sleepSlice)
		d -= sleepSlice
	}
	r.clock.Sleep(d)
}
