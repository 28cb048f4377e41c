package rttest

import (
	"context"
	"fmt"

	"github.com/roffe/rtcan"
)

func (r *Runner) rxLoop(ctx context.Context) error {
	release, err := r.pin(r.cfg.Priority)
	if err != nil {
		return fmt.Errorf("RX thread: %w", err)
	}
	defer release()

	var frame rtcan.Frame
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := r.bus.Read(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if rtcan.IsRecoverable(err) {
				continue
			}
			return fmt.Errorf("can read: %w", err)
		}
		ts := r.clock.Now()
		r.received.Inc()
		r.printf("%s %s %s\n", stamp(ts), r.rxTag("RX:"), r.format(&frame))
	}
}
