//go:build linux

package rtcan

import (
	"time"

	"golang.org/x/sys/unix"
)

var defaultSockets sockets = unixSockets{}

type unixSockets struct{}

func (unixSockets) Socket() (int, error) {
	return unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
}

func (unixSockets) ifreq(fd int, name string, req uint) (*unix.Ifreq, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return nil, err
	}
	if err := unix.IoctlIfreq(fd, req, ifr); err != nil {
		return nil, err
	}
	return ifr, nil
}

func (s unixSockets) IfIndex(fd int, name string) (int, error) {
	ifr, err := s.ifreq(fd, name, unix.SIOCGIFINDEX)
	if err != nil {
		return 0, err
	}
	return int(ifr.Uint32()), nil
}

func (s unixSockets) IfMTU(fd int, name string) (int, error) {
	ifr, err := s.ifreq(fd, name, unix.SIOCGIFMTU)
	if err != nil {
		return 0, err
	}
	return int(ifr.Uint32()), nil
}

func (unixSockets) EnableFD(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1)
}

func (unixSockets) Bind(fd, ifindex int) error {
	return unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifindex})
}

func (unixSockets) SetFilter(fd int, filters []Filter) error {
	raw := make([]unix.CanFilter, len(filters))
	for i, f := range filters {
		raw[i] = unix.CanFilter{Id: f.ID, Mask: f.Mask}
	}
	return unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, raw)
}

func (unixSockets) SetRecvOwnMsgs(fd int, enable bool) error {
	var v int
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, v)
}

func (unixSockets) SetReadTimeout(fd int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func (unixSockets) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

func (unixSockets) Send(fd int, p []byte, ifindex int) (int, error) {
	return unix.SendmsgN(fd, p, nil, &unix.SockaddrCAN{Ifindex: ifindex}, unix.MSG_DONTWAIT)
}

func (unixSockets) Close(fd int) error {
	return unix.Close(fd)
}
