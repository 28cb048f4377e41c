package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/roffe/rtcan"
	"github.com/roffe/rtcan/pkg/rt"
	"github.com/roffe/rtcan/pkg/rttest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "rtcantest",
	Short: "Realtime SocketCAN transmit and receive test",
	Long: `rtcantest can be used to continuously transmit and/or receive CAN
frames using the SocketCAN API.

The main purpose of the tool is to test the realtime behaviour of the CAN
subsystem in a Linux system.`,
	Example: `  rtcantest --if vcan0 -t 123#DEADBEEF -i 1000 -r -v
  rtcantest --if can0 -t 123##1DEADBEEF -i 500 --priority 90
  rtcantest --if can0 -r --filter 7E8:7F8
  rtcantest --if can0 --bitrate 500000 -r --detail`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTest,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagIf          = "if"
	flagInterface   = "interface"
	flagBitrate     = "bitrate"
	flagTX          = "tx"
	flagTXInterval  = "tx-interval"
	flagRX          = "rx"
	flagVerbose     = "verbose"
	flagDetail      = "detail"
	flagPriority    = "priority"
	flagFilter      = "filter"
	flagRecvOwn     = "recv-own"
	flagConfig      = "config"
	flagOpenRetries = "open-retries"
	flagOpenDelay   = "open-delay"
	flagLogLevel    = "log-level"
)

const (
	defaultPriority = 80
	prefaultSize    = 1 << 20
	readTimeout     = 100 * time.Millisecond
)

var opts options

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.iface, flagIf, "", "CAN interface. Mandatory option!")
	f.StringVar(&opts.iface, flagInterface, "", "CAN interface, same as --if")
	f.Uint32Var(&opts.bitrate, flagBitrate, 0, "set the controller bitrate before the test, needs CAP_NET_ADMIN; 0 leaves it as is")
	f.StringVarP(&opts.tx, flagTX, "t", "", "transmit this CAN frame (123#DEADBEEF, 123##1DEADBEEF) with the --tx-interval period;\nwithout an interval only one frame is sent")
	f.Int64VarP(&opts.txInterval, flagTXInterval, "i", 0, "TX interval in microseconds, no effect without --tx")
	f.BoolVarP(&opts.rx, flagRX, "r", false, "receive CAN frames and print them to stdout")
	f.BoolVarP(&opts.verbose, flagVerbose, "v", false, "print every transmitted frame")
	f.BoolVar(&opts.detail, flagDetail, false, "print frames as id, length, hex and ASCII columns")
	f.IntVar(&opts.priority, flagPriority, defaultPriority, "SCHED_FIFO priority of the TX and RX threads, 0 disables")
	f.StringArrayVar(&opts.filters, flagFilter, nil, "receive filter <id>:<mask> or <id>~<mask> (inverted), hex, repeatable")
	f.BoolVar(&opts.recvOwn, flagRecvOwn, false, "also receive frames sent on this socket")
	f.StringVar(&opts.config, flagConfig, "", "YAML test profile, flags override its values")
	f.UintVar(&opts.openRetries, flagOpenRetries, 1, "open attempts while the interface does not exist yet")
	f.DurationVar(&opts.openDelay, flagOpenDelay, 500*time.Millisecond, "delay between open attempts")
	f.StringVar(&opts.logLevel, flagLogLevel, "info", "log level (debug, info, warn, error)")
}

func runTest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	log, err := newLogger(opts.logLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	if opts.config != "" {
		p, err := rttest.LoadProfile(opts.config)
		if err != nil {
			return err
		}
		opts.merge(p, cmd.Flags().Changed)
	}

	busCfg, testCfg, err := opts.build()
	if err != nil {
		if msg, ok := usageMessage(err); ok {
			fmt.Fprintln(cmd.OutOrStdout(), msg)
		}
		return err
	}
	testCfg.Out = cmd.OutOrStdout()

	if err := rt.LockMemory(); err != nil {
		log.Warn("mlockall failed, pages may be swapped out", zap.Error(err))
	}
	rt.PrefaultHeap(prefaultSize)

	if opts.bitrate > 0 {
		if err := rtcan.SetBitrate(busCfg.Interface, opts.bitrate); err != nil {
			return err
		}
		log.Info("bitrate set", zap.String("interface", busCfg.Interface), zap.Uint32("bitrate", opts.bitrate))
	}

	bus, err := openBus(ctx, log, busCfg, opts.openRetries, opts.openDelay)
	if err != nil {
		return fmt.Errorf("unable to open CAN interface: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("close bus", zap.Error(err))
		}
	}()
	log.Info("bus open",
		zap.String("interface", bus.Interface()),
		zap.Bool("fd", bus.FD()),
		zap.Bool("tx", testCfg.TX),
		zap.Duration("interval", testCfg.Interval),
		zap.Bool("rx", testCfg.RX),
	)

	runner := rttest.NewRunner(bus, testCfg, rttest.WithLogger(log))
	err = runner.Run(ctx)
	log.Info("bus statistics", zap.Stringer("stats", bus.Stats()))
	return err
}

// openBus retries while the interface does not exist, e.g. when a vcan or
// slcan device is being created alongside the test.
func openBus(ctx context.Context, log *zap.Logger, cfg rtcan.BusConfig, attempts uint, delay time.Duration) (*rtcan.Bus, error) {
	if attempts == 0 {
		attempts = 1
	}
	var bus *rtcan.Bus
	err := retry.Do(func() error {
		b, err := rtcan.Open(cfg, rtcan.OptLogger(log))
		if err != nil {
			return err
		}
		bus = b
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(rtcan.IsInterfaceNotFound),
		retry.OnRetry(func(n uint, err error) {
			log.Info("interface not ready", zap.Uint("retry", n+1), zap.Error(err))
		}),
		retry.LastErrorOnly(true),
	)
	return bus, err
}
