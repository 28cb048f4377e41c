package rtcan

import "time"

// ifNameSize is IFNAMSIZ, including the terminating NUL.
const ifNameSize = 16

// sockets is the raw CAN socket surface the bus is built on.
type sockets interface {
	Socket() (int, error)
	IfIndex(fd int, name string) (int, error)
	IfMTU(fd int, name string) (int, error)
	EnableFD(fd int) error
	Bind(fd, ifindex int) error
	SetFilter(fd int, filters []Filter) error
	SetRecvOwnMsgs(fd int, enable bool) error
	SetReadTimeout(fd int, timeout time.Duration) error
	Read(fd int, p []byte) (int, error)
	Send(fd int, p []byte, ifindex int) (int, error)
	Close(fd int) error
}

// validIfName checks a name before it is copied into a fixed ifreq buffer.
func validIfName(name string) bool {
	if name == "" || len(name) >= ifNameSize {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return false
		}
	}
	return true
}
