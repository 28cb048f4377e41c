package rtcan

import (
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Bus owns one raw CAN socket bound to one interface.
//
// A Bus holds no locks. One goroutine may Read while another Writes; the
// socket itself serializes each direction. Read blocks until a frame
// arrives, the read timeout expires or the descriptor fails. Write never
// blocks: a full transmit queue is reported as (0, nil).
type Bus struct {
	sys sockets
	log *zap.Logger

	fd      int
	ifindex int
	ifname  string
	fdMode  bool

	state atomic.Int32
	stats counters
}

// Open allocates a raw CAN socket, binds it to cfg.Interface and returns it
// fully configured. On error no descriptor is left open.
func Open(cfg BusConfig, opts ...Opts) (*Bus, error) {
	b := &Bus{
		sys: defaultSockets,
		log: zap.NewNop(),
		fd:  -1,
	}
	for _, o := range opts {
		o(b)
	}
	if err := b.open(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bus) open(cfg BusConfig) (err error) {
	log := b.log.With(zap.String("interface", cfg.Interface))
	fail := func(kind OpenErrorKind, err error) error {
		return &OpenError{Kind: kind, Interface: cfg.Interface, Err: err}
	}

	fd, err := b.sys.Socket()
	if err != nil {
		return fail(SocketCreate, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := b.sys.Close(fd); cerr != nil {
			log.Warn("close socket after failed open", zap.Error(cerr))
		}
	}()

	if !validIfName(cfg.Interface) {
		return fail(InterfaceNotFound, fmt.Errorf("invalid interface name %q: %w", cfg.Interface, syscall.ENODEV))
	}
	ifindex, err := b.sys.IfIndex(fd, cfg.Interface)
	if err != nil {
		return fail(InterfaceNotFound, err)
	}
	log.Debug("resolved interface", zap.Int("ifindex", ifindex))

	if cfg.WantFD() {
		mtu, err := b.sys.IfMTU(fd, cfg.Interface)
		if err != nil {
			return fail(FdModeUnsupported, fmt.Errorf("get interface MTU: %w", err))
		}
		if mtu != CANFDMTU {
			return fail(FdModeUnsupported, fmt.Errorf("interface MTU %d is not valid, expected %d", mtu, CANFDMTU))
		}
		if err := b.sys.EnableFD(fd); err != nil {
			return fail(FdModeUnsupported, fmt.Errorf("enable CAN FD frames: %w", err))
		}
		b.fdMode = true
		log.Debug("CAN FD frames enabled")
	}

	if err := b.sys.Bind(fd, ifindex); err != nil {
		return fail(BindFailed, err)
	}

	// Filter installation is best effort; open succeeds either way.
	if len(cfg.RxFilter) > 0 {
		if ferr := b.sys.SetFilter(fd, cfg.RxFilter); ferr != nil {
			b.stats.filterErrors.Inc()
			log.Warn("rx filter not installed", zap.Int("filters", len(cfg.RxFilter)), zap.Error(ferr))
		}
	}
	if cfg.RecvOwnMsgs {
		if oerr := b.sys.SetRecvOwnMsgs(fd, true); oerr != nil {
			log.Warn("receive own messages not enabled", zap.Error(oerr))
		}
	}
	if cfg.ReadTimeout > 0 {
		if terr := b.sys.SetReadTimeout(fd, cfg.ReadTimeout); terr != nil {
			log.Warn("read timeout not set", zap.Duration("timeout", cfg.ReadTimeout), zap.Error(terr))
		}
	}

	b.fd = fd
	b.ifindex = ifindex
	b.ifname = cfg.Interface
	b.state.Store(int32(StateOpen))
	log.Debug("bus open", zap.Bool("fd", b.fdMode))
	return nil
}

// Close releases the socket. The bus is closed afterwards even when an
// error is returned; a second Close returns a CloseError wrapping ErrClosed.
func (b *Bus) Close() error {
	if !b.state.CAS(int32(StateOpen), int32(StateClosed)) {
		return &CloseError{Err: ErrClosed}
	}
	if err := b.sys.Close(b.fd); err != nil {
		return &CloseError{Err: err}
	}
	return nil
}

// Read blocks for one frame record and decodes it into f. The returned count
// is what the socket delivered: 16 for a classic frame, 72 for CAN FD. A
// shorter count is returned as is; a record too short to hold the id (under
// 4 bytes) leaves f zeroed.
func (b *Bus) Read(f *Frame) (int, error) {
	if b.State() != StateOpen {
		return 0, &IoError{Op: "read", Kind: IoOther, Err: ErrClosed}
	}
	var buf [CANFDMTU]byte
	n, err := b.sys.Read(b.fd, buf[:])
	if err != nil {
		ioe := newIoError("read", err)
		if ioe.Kind != IoTimeout {
			b.stats.errors.Inc()
		}
		return 0, ioe
	}
	if n < 4 {
		*f = Frame{}
	} else if err := f.UnmarshalBinary(buf[:n]); err != nil {
		return 0, newIoError("read", err)
	}
	b.stats.recvFrames.Inc()
	b.stats.recvBytes.Add(uint64(n))
	return n, nil
}

// Write sends one frame without blocking. The length is normalized down to a
// supported value first, and clamped to 8 on a classic socket. When the
// transmit queue is full the frame is dropped and Write returns (0, nil):
// this usually means the bus is disconnected or saturated.
func (b *Bus) Write(f *Frame) (int, error) {
	if b.State() != StateOpen {
		return 0, &IoError{Op: "write", Kind: IoOther, Err: ErrClosed}
	}
	out := *f
	maxLen, size := CANFDMaxDLen, CANFDMTU
	if !b.fdMode {
		maxLen, size = CANMaxDLen, CANMTU
	}
	l := int(out.Len)
	if l > maxLen {
		l = maxLen
	}
	out.Len = NormalizeLen(l)

	var buf [CANFDMTU]byte
	out.put(buf[:])
	n, err := b.sys.Send(b.fd, buf[:size], b.ifindex)
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			b.stats.dropped.Inc()
			return 0, nil
		}
		b.stats.errors.Inc()
		return 0, newIoError("write", err)
	}
	b.stats.sentFrames.Inc()
	b.stats.sentBytes.Add(uint64(n))
	return n, nil
}

func (b *Bus) State() State {
	return State(b.state.Load())
}

// FD reports whether the socket carries CAN FD frames.
func (b *Bus) FD() bool {
	return b.fdMode
}

func (b *Bus) Interface() string {
	return b.ifname
}

func (b *Bus) Stats() Stats {
	return b.stats.snapshot()
}
