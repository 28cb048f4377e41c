package rttest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/roffe/rtcan"
	"github.com/roffe/rtcan/pkg/canfmt"
	"github.com/roffe/rtcan/pkg/rt"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	bus   Bus
	cfg   Config
	clock Clock
	log   *zap.Logger
	pin   func(priority int) (func(), error)

	mu  sync.Mutex
	out io.Writer

	txTag, rxTag, warn func(a ...interface{}) string

	sent     atomic.Uint64
	dropped  atomic.Uint64
	overruns atomic.Uint64
	received atomic.Uint64
}

type Option func(r *Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(c Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

func withPin(pin func(int) (func(), error)) Option {
	return func(r *Runner) {
		r.pin = pin
	}
}

func NewRunner(bus Bus, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		bus:   bus,
		cfg:   cfg,
		clock: monotonicClock{},
		log:   zap.NewNop(),
		pin:   rt.PinThread,
		out:   cfg.Out,
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	plain := fmt.Sprint
	r.txTag, r.rxTag, r.warn = plain, plain, plain
	if cfg.Color {
		r.txTag = color.New(color.FgYellow).SprintFunc()
		r.rxTag = color.New(color.FgGreen).SprintFunc()
		r.warn = color.New(color.FgRed).SprintFunc()
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run starts the enabled loops and waits for both to finish. A single-shot
// TX loop ends on its own; the RX loop runs until ctx is cancelled or the
// bus fails. The first loop error cancels the other loop.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.TX {
		g.Go(func() error {
			return r.txLoop(gctx)
		})
	}
	if r.cfg.RX {
		g.Go(func() error {
			return r.rxLoop(gctx)
		})
	}
	err := g.Wait()
	s := r.Summary()
	r.log.Info("run finished",
		zap.Uint64("sent", s.Sent),
		zap.Uint64("dropped", s.Dropped),
		zap.Uint64("overruns", s.Overruns),
		zap.Uint64("received", s.Received),
	)
	return err
}

func (r *Runner) Summary() Summary {
	return Summary{
		Sent:     r.sent.Load(),
		Dropped:  r.dropped.Load(),
		Overruns: r.overruns.Load(),
		Received: r.received.Load(),
	}
}

func (r *Runner) printf(format string, a ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, a...)
}

func (r *Runner) format(f *rtcan.Frame) string {
	switch {
	case r.cfg.Detail && r.cfg.Color:
		return f.ColorString()
	case r.cfg.Detail:
		return f.String()
	}
	return canfmt.Sprint(*f, false, canfmt.RequiredMTU(r.cfg.FD))
}
