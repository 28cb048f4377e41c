package rtcan

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeSockets records the calls the bus makes and tracks which descriptors
// are still open.
type fakeSockets struct {
	next   int
	open   map[int]bool
	ifaces map[string]int // name -> MTU

	fdEnabled  bool
	boundTo    int
	filters    []Filter
	recvOwn    bool
	timeout    time.Duration
	closeCalls int

	socketErr  error
	bindErr    error
	filterErr  error
	enableErr  error
	closeErr   error
	sendErr    error
	readErr    error
	readRecord []byte

	sent [][]byte
}

func newFakeSockets() *fakeSockets {
	return &fakeSockets{
		next: 3,
		open: map[int]bool{},
		ifaces: map[string]int{
			"vcan0": CANMTU,
			"vcan1": CANFDMTU,
		},
	}
}

func (s *fakeSockets) openCount() int {
	n := 0
	for _, o := range s.open {
		if o {
			n++
		}
	}
	return n
}

func (s *fakeSockets) ifindex(name string) int {
	if name == "vcan1" {
		return 2
	}
	return 1
}

func (s *fakeSockets) Socket() (int, error) {
	if s.socketErr != nil {
		return -1, s.socketErr
	}
	fd := s.next
	s.next++
	s.open[fd] = true
	return fd, nil
}

func (s *fakeSockets) IfIndex(_ int, name string) (int, error) {
	if _, ok := s.ifaces[name]; !ok {
		return 0, syscall.ENODEV
	}
	return s.ifindex(name), nil
}

func (s *fakeSockets) IfMTU(_ int, name string) (int, error) {
	mtu, ok := s.ifaces[name]
	if !ok {
		return 0, syscall.ENODEV
	}
	return mtu, nil
}

func (s *fakeSockets) EnableFD(int) error {
	if s.enableErr != nil {
		return s.enableErr
	}
	s.fdEnabled = true
	return nil
}

func (s *fakeSockets) Bind(_ int, ifindex int) error {
	if s.bindErr != nil {
		return s.bindErr
	}
	s.boundTo = ifindex
	return nil
}

func (s *fakeSockets) SetFilter(_ int, filters []Filter) error {
	if s.filterErr != nil {
		return s.filterErr
	}
	s.filters = filters
	return nil
}

func (s *fakeSockets) SetRecvOwnMsgs(_ int, enable bool) error {
	s.recvOwn = enable
	return nil
}

func (s *fakeSockets) SetReadTimeout(_ int, d time.Duration) error {
	s.timeout = d
	return nil
}

func (s *fakeSockets) Read(_ int, p []byte) (int, error) {
	if s.readErr != nil {
		return -1, s.readErr
	}
	return copy(p, s.readRecord), nil
}

func (s *fakeSockets) Send(_ int, p []byte, _ int) (int, error) {
	if s.sendErr != nil {
		return -1, s.sendErr
	}
	s.sent = append(s.sent, append([]byte(nil), p...))
	return len(p), nil
}

func (s *fakeSockets) Close(fd int) error {
	s.closeCalls++
	s.open[fd] = false
	return s.closeErr
}

func openFake(t *testing.T, s *fakeSockets, cfg BusConfig) *Bus {
	t.Helper()
	b, err := Open(cfg, optSockets(s))
	require.NoError(t, err)
	require.Equal(t, StateOpen, b.State())
	return b
}

func TestOpenClassic(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0", MTU: 8})
	assert.False(t, b.FD())
	assert.False(t, s.fdEnabled)
	assert.Equal(t, 1, s.boundTo)
	assert.Equal(t, "vcan0", b.Interface())
	assert.Equal(t, 1, s.openCount())
	require.NoError(t, b.Close())
	assert.Equal(t, 0, s.openCount())
}

func TestOpenMTUThreshold(t *testing.T) {
	tests := []struct {
		name   string
		iface  string
		mtu    int
		wantFD bool
	}{
		{"zero", "vcan0", 0, false},
		{"eight", "vcan0", 8, false},
		{"eight on fd interface", "vcan1", 8, false},
		{"nine", "vcan1", 9, true},
		{"sixty four", "vcan1", 64, true},
		{"struct size", "vcan1", CANFDMTU, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSockets()
			b := openFake(t, s, BusConfig{Interface: tt.iface, MTU: tt.mtu})
			defer b.Close()
			assert.Equal(t, tt.wantFD, b.FD())
			assert.Equal(t, tt.wantFD, s.fdEnabled)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BusConfig
		setup    func(s *fakeSockets)
		kind     OpenErrorKind
		wantErr  error
		noSocket bool
	}{
		{
			name:     "socket create",
			cfg:      BusConfig{Interface: "vcan0"},
			setup:    func(s *fakeSockets) { s.socketErr = syscall.EAFNOSUPPORT },
			kind:     SocketCreate,
			wantErr:  syscall.EAFNOSUPPORT,
			noSocket: true,
		},
		{
			name:    "unknown interface",
			cfg:     BusConfig{Interface: "doesnotexist0"},
			kind:    InterfaceNotFound,
			wantErr: syscall.ENODEV,
		},
		{
			name:    "empty name",
			cfg:     BusConfig{Interface: ""},
			kind:    InterfaceNotFound,
			wantErr: syscall.ENODEV,
		},
		{
			name:    "name too long",
			cfg:     BusConfig{Interface: "averyveryverylongname0"},
			kind:    InterfaceNotFound,
			wantErr: syscall.ENODEV,
		},
		{
			name:    "name of exactly IFNAMSIZ",
			cfg:     BusConfig{Interface: "can0123456789abc"},
			kind:    InterfaceNotFound,
			wantErr: syscall.ENODEV,
		},
		{
			name: "fd on classic interface",
			cfg:  BusConfig{Interface: "vcan0", MTU: 64},
			kind: FdModeUnsupported,
		},
		{
			name:    "fd option rejected",
			cfg:     BusConfig{Interface: "vcan1", MTU: 64},
			setup:   func(s *fakeSockets) { s.enableErr = syscall.ENOPROTOOPT },
			kind:    FdModeUnsupported,
			wantErr: syscall.ENOPROTOOPT,
		},
		{
			name:    "bind",
			cfg:     BusConfig{Interface: "vcan0"},
			setup:   func(s *fakeSockets) { s.bindErr = syscall.ENETDOWN },
			kind:    BindFailed,
			wantErr: syscall.ENETDOWN,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSockets()
			if tt.setup != nil {
				tt.setup(s)
			}
			b, err := Open(tt.cfg, optSockets(s))
			require.Error(t, err)
			assert.Nil(t, b)

			var oe *OpenError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tt.kind, oe.Kind)
			assert.Equal(t, tt.cfg.Interface, oe.Interface)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}

			assert.Equal(t, 0, s.openCount(), "descriptor leaked")
			if tt.noSocket {
				assert.Equal(t, 0, s.closeCalls)
			} else {
				assert.Equal(t, 1, s.closeCalls)
			}
		})
	}
}

func TestOpenErrorHelpers(t *testing.T) {
	s := newFakeSockets()
	_, err := Open(BusConfig{Interface: "doesnotexist0"}, optSockets(s))
	assert.True(t, IsInterfaceNotFound(err))
	assert.False(t, IsFdModeUnsupported(err))

	_, err = Open(BusConfig{Interface: "vcan0", MTU: 64}, optSockets(s))
	assert.True(t, IsFdModeUnsupported(err))
	assert.False(t, IsInterfaceNotFound(err))
	assert.Contains(t, err.Error(), "vcan0")
}

func TestOpenFilterFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := newFakeSockets()
	s.filterErr = syscall.EINVAL

	b, err := Open(BusConfig{
		Interface: "vcan0",
		RxFilter:  []Filter{NewStdFilter(0x123)},
	}, optSockets(s), OptLogger(zap.New(core)))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, uint64(1), b.Stats().FilterErrors)
	require.Equal(t, 1, logs.FilterMessage("rx filter not installed").Len())
}

func TestOpenAppliesOptions(t *testing.T) {
	s := newFakeSockets()
	filters := []Filter{NewStdFilter(0x123), NewExtFilter(0x18DAF110)}
	b := openFake(t, s, BusConfig{
		Interface:   "vcan0",
		RxFilter:    filters,
		RecvOwnMsgs: true,
		ReadTimeout: 100 * time.Millisecond,
	})
	defer b.Close()
	assert.Equal(t, filters, s.filters)
	assert.True(t, s.recvOwn)
	assert.Equal(t, 100*time.Millisecond, s.timeout)
	assert.Equal(t, uint64(0), b.Stats().FilterErrors)
}

func TestOpenWithoutFiltersLeavesDefault(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	defer b.Close()
	assert.Nil(t, s.filters)
	assert.False(t, s.recvOwn)
	assert.Zero(t, s.timeout)
}

func TestWriteClassic(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	defer b.Close()

	f := NewFrame(0x123, []byte{1, 2, 3, 4})
	n, err := b.Write(&f)
	require.NoError(t, err)
	assert.Equal(t, CANMTU, n)
	require.Len(t, s.sent, 1)
	assert.Len(t, s.sent[0], CANMTU)

	var got Frame
	require.NoError(t, got.UnmarshalBinary(s.sent[0]))
	assert.Equal(t, uint32(0x123), got.ID)
	assert.Equal(t, uint8(4), got.Len)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Payload())

	st := b.Stats()
	assert.Equal(t, uint64(1), st.SentFrames)
	assert.Equal(t, uint64(CANMTU), st.SentBytes)
}

func TestWriteClampsClassicLength(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	defer b.Close()

	f := Frame{ID: 0x42, Len: 12}
	_, err := b.Write(&f)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), s.sent[0][4])
	// caller frame untouched
	assert.Equal(t, uint8(12), f.Len)
}

func TestWriteNormalizesLength(t *testing.T) {
	tests := []struct {
		in, want uint8
	}{
		{0, 0}, {5, 5}, {8, 8}, {9, 8}, {11, 8}, {12, 12}, {13, 12},
		{20, 20}, {31, 24}, {47, 32}, {63, 48}, {64, 64}, {200, 64},
	}
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan1", MTU: 64})
	defer b.Close()
	for _, tt := range tests {
		f := Frame{ID: 0x7FF, Len: tt.in}
		n, err := b.Write(&f)
		require.NoError(t, err)
		assert.Equal(t, CANFDMTU, n)
		assert.Equal(t, tt.want, s.sent[len(s.sent)-1][4], "len %d", tt.in)
	}
}

func TestWriteQueueFull(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.EWOULDBLOCK} {
		s := newFakeSockets()
		b := openFake(t, s, BusConfig{Interface: "vcan0"})
		s.sendErr = errno

		f := NewFrame(0x1, []byte{0})
		n, err := b.Write(&f)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, uint64(1), b.Stats().DroppedFrames)
		assert.Equal(t, uint64(0), b.Stats().Errors)
		b.Close()
	}
}

func TestWriteError(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	defer b.Close()
	s.sendErr = syscall.ENETDOWN

	f := NewFrame(0x1, nil)
	n, err := b.Write(&f)
	assert.Equal(t, 0, n)
	var ioe *IoError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, IoOther, ioe.Kind)
	assert.Equal(t, syscall.ENETDOWN, ioe.Code())
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, uint64(1), b.Stats().Errors)
}

func TestRead(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan1", MTU: 64})
	defer b.Close()

	src := NewFrame(0x123, []byte{1, 2, 3, 4})
	rec, _ := src.MarshalBinary()

	tests := []struct {
		name   string
		record []byte
		wantN  int
	}{
		{"fd record", rec, CANFDMTU},
		{"classic record", rec[:CANMTU], CANMTU},
		{"short record", rec[:10], 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.readRecord = tt.record
			var f Frame
			n, err := b.Read(&f)
			require.NoError(t, err)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, uint32(0x123), f.ID)
			assert.Equal(t, uint8(4), f.Len)
			assert.Equal(t, []byte{1, 2}, f.Data[:2])
		})
	}
	assert.Equal(t, uint64(3), b.Stats().RecvFrames)
	assert.Equal(t, uint64(CANFDMTU+CANMTU+10), b.Stats().RecvBytes)
}

func TestReadTinyRecordZeroesFrame(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	defer b.Close()

	s.readRecord = []byte{0x23, 0x01}
	f := NewFrame(0x7FF, []byte{1, 2, 3})
	n, err := b.Read(&f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, Frame{}, f)
	assert.Equal(t, uint64(1), b.Stats().RecvFrames)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		err         error
		kind        IoErrorKind
		recoverable bool
		counted     bool
	}{
		{syscall.EINTR, IoInterrupted, true, true},
		{syscall.EAGAIN, IoTimeout, true, false},
		{syscall.EBADF, IoOther, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newFakeSockets()
			b := openFake(t, s, BusConfig{Interface: "vcan0"})
			defer b.Close()
			s.readErr = tt.err

			var f Frame
			n, err := b.Read(&f)
			assert.Equal(t, 0, n)
			var ioe *IoError
			require.True(t, errors.As(err, &ioe))
			assert.Equal(t, tt.kind, ioe.Kind)
			assert.Equal(t, tt.recoverable, IsRecoverable(err))
			if tt.counted {
				assert.Equal(t, uint64(1), b.Stats().Errors)
			} else {
				assert.Equal(t, uint64(0), b.Stats().Errors)
			}
		})
	}
}

func TestUseAfterClose(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	require.NoError(t, b.Close())
	assert.Equal(t, StateClosed, b.State())

	var f Frame
	_, err := b.Read(&f)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = b.Write(&f)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Empty(t, s.sent)

	err = b.Close()
	var ce *CloseError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, 1, s.closeCalls)
}

func TestCloseError(t *testing.T) {
	s := newFakeSockets()
	b := openFake(t, s, BusConfig{Interface: "vcan0"})
	s.closeErr = syscall.EIO

	err := b.Close()
	var ce *CloseError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, syscall.EIO))
	assert.Equal(t, StateClosed, b.State())
}
