package rtcan

import (
	"errors"
	"fmt"
	"time"
)

// InvFilter inverts the match of a Filter (CAN_INV_FILTER).
const InvFilter uint32 = 0x20000000

// Filter is a receive filter rule. A frame matches when
// received_id & Mask == ID & Mask.
type Filter struct {
	ID   uint32
	Mask uint32
}

func NewStdFilter(id uint32) Filter {
	return Filter{ID: id, Mask: SFFMask}
}

func NewStdInvFilter(id uint32) Filter {
	return Filter{ID: id | InvFilter, Mask: SFFMask}
}

func NewExtFilter(id uint32) Filter {
	return Filter{ID: id | EFFFlag, Mask: EFFMask | EFFFlag}
}

func NewExtInvFilter(id uint32) Filter {
	return Filter{ID: id | EFFFlag | InvFilter, Mask: EFFMask | EFFFlag}
}

// Match applies the filter rule to a can_id the way the kernel does.
func (f Filter) Match(canID uint32) bool {
	hit := canID&f.Mask == f.ID&f.Mask&^InvFilter
	if f.ID&InvFilter != 0 {
		return !hit
	}
	return hit
}

func (f Filter) String() string {
	return fmt.Sprintf("%X:%X", f.ID, f.Mask)
}

// BusConfig is read-only to the bus.
type BusConfig struct {
	// Interface is the CAN network interface name, e.g. "can0".
	Interface string
	// MTU is the requested frame length bound. Values above 8 put the
	// socket in CAN FD mode.
	MTU int
	// RxFilter is installed after bind when non-empty. Installation errors
	// are logged, not returned.
	RxFilter []Filter
	// RecvOwnMsgs makes the socket receive the frames it sends itself.
	RecvOwnMsgs bool
	// ReadTimeout bounds a blocking Read. Zero blocks forever.
	ReadTimeout time.Duration
}

var (
	ErrNoInterface = errors.New("missing CAN interface")
	ErrNegativeMTU = errors.New("negative MTU")
)

func (c BusConfig) Validate() error {
	if c.Interface == "" {
		return ErrNoInterface
	}
	if c.MTU < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMTU, c.MTU)
	}
	return nil
}

// WantFD reports whether the config requests CAN FD framing.
func (c BusConfig) WantFD() bool {
	return c.MTU > CANMaxDLen
}
