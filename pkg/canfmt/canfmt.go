// Package canfmt reads and writes CAN frames in the compact text notation
// used by can-utils (cansend, candump -L).
//
//	123#DEADBEEF         classic frame, 11 bit id
//	18DAF110#02.10.03    classic frame, 29 bit id, dot separated bytes
//	123#R  123#R3        remote request, optional length
//	123##1DEADBEEF       CAN FD frame, flags nibble 1 (bit rate switch)
package canfmt

import (
	"errors"

	"github.com/roffe/rtcan"
)

// ErrBadFrame is wrapped by every Parse error.
var ErrBadFrame = errors.New("bad CAN frame")

// RequiredMTU is the frame length bound a bus needs to carry frames of the
// given kind.
func RequiredMTU(fd bool) int {
	if fd {
		return rtcan.CANFDMaxDLen
	}
	return rtcan.CANMaxDLen
}
