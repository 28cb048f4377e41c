package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/roffe/rtcan"
	"github.com/roffe/rtcan/pkg/canfmt"
	"github.com/roffe/rtcan/pkg/rttest"
)

var (
	errMissingInterface = errors.New("missing CAN interface")
	errNothingToDo      = errors.New("neither --rx nor --tx given")
)

// usageMessage returns the line printed for a command line mistake.
func usageMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, errMissingInterface):
		return "Missing CAN interface!", true
	case errors.Is(err, errNothingToDo):
		return "At least one of the --rx and --tx options must be used!", true
	}
	return "", false
}

type options struct {
	iface       string
	bitrate     uint32
	tx          string
	txInterval  int64
	rx          bool
	verbose     bool
	detail      bool
	priority    int
	filters     []string
	recvOwn     bool
	config      string
	openRetries uint
	openDelay   time.Duration
	logLevel    string
}

// merge fills in profile values for every flag the user did not set.
func (o *options) merge(p *rttest.Profile, changed func(name string) bool) {
	if !changed(flagIf) && !changed(flagInterface) && p.Interface != "" {
		o.iface = p.Interface
	}
	if !changed(flagBitrate) && p.Bitrate != 0 {
		o.bitrate = p.Bitrate
	}
	if !changed(flagTX) && p.TX != "" {
		o.tx = p.TX
	}
	if !changed(flagTXInterval) && p.TXInterval != 0 {
		o.txInterval = p.TXInterval
	}
	if !changed(flagRX) && p.RX {
		o.rx = true
	}
	if !changed(flagVerbose) && p.Verbose {
		o.verbose = true
	}
	if !changed(flagDetail) && p.Detail {
		o.detail = true
	}
	if !changed(flagPriority) && p.Priority != nil {
		o.priority = *p.Priority
	}
	if !changed(flagRecvOwn) && p.RecvOwn {
		o.recvOwn = true
	}
	if !changed(flagFilter) {
		for _, f := range p.RxFilters() {
			o.filters = append(o.filters, fmt.Sprintf("%X:%X", f.ID, f.Mask))
		}
	}
}

func (o *options) build() (rtcan.BusConfig, rttest.Config, error) {
	var (
		busCfg  rtcan.BusConfig
		testCfg rttest.Config
	)
	if o.iface == "" {
		return busCfg, testCfg, errMissingInterface
	}
	if o.tx == "" && !o.rx {
		return busCfg, testCfg, errNothingToDo
	}
	if o.txInterval < 0 {
		return busCfg, testCfg, fmt.Errorf("invalid TX interval %d", o.txInterval)
	}

	busCfg.Interface = o.iface
	busCfg.RecvOwnMsgs = o.recvOwn
	busCfg.ReadTimeout = readTimeout
	for _, s := range o.filters {
		f, err := parseFilter(s)
		if err != nil {
			return busCfg, testCfg, err
		}
		busCfg.RxFilter = append(busCfg.RxFilter, f)
	}

	if o.tx != "" {
		frame, fd, err := canfmt.Parse(o.tx)
		if err != nil {
			return busCfg, testCfg, err
		}
		// pad up to the next length a DLC can carry
		frame.Len = rtcan.DLCToLen(rtcan.LenToDLC(int(frame.Len)))
		busCfg.MTU = canfmt.RequiredMTU(fd)
		testCfg.TX = true
		testCfg.Frame = frame
		testCfg.FD = fd
		testCfg.Interval = time.Duration(o.txInterval) * time.Microsecond
	}
	testCfg.RX = o.rx
	testCfg.Verbose = o.verbose
	testCfg.Detail = o.detail
	testCfg.Priority = o.priority
	testCfg.Color = !color.NoColor

	if err := busCfg.Validate(); err != nil {
		return busCfg, testCfg, err
	}
	if err := testCfg.Validate(); err != nil {
		return busCfg, testCfg, err
	}
	return busCfg, testCfg, nil
}

// parseFilter reads <id>:<mask> or the inverted <id>~<mask>, both in hex.
func parseFilter(s string) (rtcan.Filter, error) {
	sep := ":"
	inverted := false
	if strings.Contains(s, "~") {
		sep, inverted = "~", true
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return rtcan.Filter{}, fmt.Errorf("invalid filter %q, want <id>:<mask>", s)
	}
	id, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return rtcan.Filter{}, fmt.Errorf("invalid filter id %q: %w", parts[0], err)
	}
	mask, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return rtcan.Filter{}, fmt.Errorf("invalid filter mask %q: %w", parts[1], err)
	}
	f := rtcan.Filter{ID: uint32(id), Mask: uint32(mask)}
	if inverted {
		f.ID |= rtcan.InvFilter
	}
	return f, nil
}
