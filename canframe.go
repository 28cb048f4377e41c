package rtcan

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Identifier flags and masks of the can_id field (linux/can.h).
const (
	EFFFlag uint32 = 0x80000000 // extended frame format, 29 bit identifier
	RTRFlag uint32 = 0x40000000 // remote transmission request
	ERRFlag uint32 = 0x20000000 // error message frame

	SFFMask uint32 = 0x000007FF
	EFFMask uint32 = 0x1FFFFFFF
	ERRMask uint32 = 0x1FFFFFFF
)

// CAN FD frame flags.
const (
	FDFlagBRS uint8 = 0x01 // bit rate switch
	FDFlagESI uint8 = 0x02 // error state indicator
	FDFlagFDF uint8 = 0x04 // marks a CAN FD frame
)

const (
	// CANMaxDLen is the payload capacity of a classic CAN frame.
	CANMaxDLen = 8
	// CANFDMaxDLen is the payload capacity of a CAN FD frame.
	CANFDMaxDLen = 64

	// CANMTU is the size of struct can_frame.
	CANMTU = 16
	// CANFDMTU is the size of struct canfd_frame.
	CANFDMTU = 72
)

// Frame mirrors struct canfd_frame. The same fixed representation carries
// classic frames; only the first 8 data bytes are meaningful then.
type Frame struct {
	ID    uint32
	Len   uint8
	Flags uint8
	Res0  uint8
	Res1  uint8
	Data  [CANFDMaxDLen]byte
}

// NewFrame creates a frame and copies at most 64 bytes of data. The length
// is normalized to a supported CAN FD length.
func NewFrame(identifier uint32, data []byte) Frame {
	var f Frame
	f.ID = identifier
	n := copy(f.Data[:], data)
	f.Len = NormalizeLen(n)
	return f
}

// Payload returns the meaningful data bytes.
func (f *Frame) Payload() []byte {
	n := int(f.Len)
	if n > CANFDMaxDLen {
		n = CANFDMaxDLen
	}
	return f.Data[:n]
}

// Identifier returns the id with the flag bits stripped.
func (f *Frame) Identifier() uint32 {
	if f.IsExtended() || f.IsError() {
		return f.ID & EFFMask
	}
	return f.ID & SFFMask
}

func (f *Frame) IsExtended() bool { return f.ID&EFFFlag != 0 }

func (f *Frame) IsRemote() bool { return f.ID&RTRFlag != 0 }

func (f *Frame) IsError() bool { return f.ID&ERRFlag != 0 }

var dlcToLen = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// DLCToLen maps a 4 bit data length code to a payload length.
func DLCToLen(dlc uint8) uint8 {
	return dlcToLen[dlc&0x0F]
}

// LenToDLC maps a payload length to the smallest data length code that can
// carry it. Lengths above 64 map to 15.
func LenToDLC(n int) uint8 {
	if n <= CANMaxDLen {
		if n < 0 {
			return 0
		}
		return uint8(n)
	}
	for dlc := uint8(9); dlc < 16; dlc++ {
		if int(dlcToLen[dlc]) >= n {
			return dlc
		}
	}
	return 15
}

// NormalizeLen rounds n down to the nearest length in
// {0..8, 12, 16, 20, 24, 32, 48, 64}.
func NormalizeLen(n int) uint8 {
	if n <= 0 {
		return 0
	}
	for dlc := 15; dlc >= 0; dlc-- {
		if int(dlcToLen[dlc]) <= n {
			return dlcToLen[dlc]
		}
	}
	return 0
}

// ValidLen reports whether n is one of the discrete CAN FD lengths.
func ValidLen(n int) bool {
	return n >= 0 && n <= CANFDMaxDLen && int(NormalizeLen(n)) == n
}

// MarshalBinary encodes the frame as struct canfd_frame in host byte order.
func (f *Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CANFDMTU)
	f.put(buf)
	return buf, nil
}

func (f *Frame) put(buf []byte) {
	binary.NativeEndian.PutUint32(buf[0:4], f.ID)
	buf[4] = f.Len
	buf[5] = f.Flags
	buf[6] = f.Res0
	buf[7] = f.Res1
	copy(buf[8:], f.Data[:])
}

// UnmarshalBinary decodes a struct can_frame or struct canfd_frame. Shorter
// records decode as far as they reach; the rest of the frame is zeroed.
func (f *Frame) UnmarshalBinary(data []byte) error {
	*f = Frame{}
	if len(data) < 4 {
		return fmt.Errorf("rtcan: frame record too short: %d bytes", len(data))
	}
	f.ID = binary.NativeEndian.Uint32(data[0:4])
	fields := []*uint8{&f.Len, &f.Flags, &f.Res0, &f.Res1}
	for i, p := range fields {
		if 4+i >= len(data) {
			return nil
		}
		*p = data[4+i]
	}
	if len(data) > 8 {
		copy(f.Data[:], data[8:])
	}
	return nil
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f *Frame) idString() string {
	if f.IsExtended() || f.IsError() {
		return fmt.Sprintf("0x%08X", f.Identifier())
	}
	return fmt.Sprintf("0x%03X", f.Identifier())
}

func (f *Frame) hexView() string {
	var hexView strings.Builder
	data := f.Payload()
	for i, b := range data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			hexView.WriteString(" ")
		}
	}
	return hexView.String()
}

func (f *Frame) String() string {
	var out strings.Builder
	out.WriteString(f.idString() + " || ")
	out.WriteString(strconv.Itoa(int(f.Len)) + " || ")
	if f.IsRemote() {
		out.WriteString("RTR || ")
	}
	out.WriteString(f.hexView())
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Payload()))
	return out.String()
}

func (f *Frame) ColorString() string {
	var out strings.Builder
	out.WriteString(green(f.idString()) + " || ")
	out.WriteString(strconv.Itoa(int(f.Len)) + " || ")
	if f.IsRemote() {
		out.WriteString("RTR || ")
	}
	out.WriteString(red(f.hexView()))
	out.WriteString(" || ")
	out.WriteString(yellow(onlyPrintable(f.Payload())))
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 126 {
			out.WriteString("·")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
