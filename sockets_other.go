//go:build !linux

package rtcan

import "time"

var defaultSockets sockets = unsupportedSockets{}

type unsupportedSockets struct{}

func (unsupportedSockets) Socket() (int, error) { return -1, ErrUnsupported }
func (unsupportedSockets) IfIndex(int, string) (int, error) { return 0, ErrUnsupported }
func (unsupportedSockets) IfMTU(int, string) (int, error) { return 0, ErrUnsupported }
func (unsupportedSockets) EnableFD(int) error { return ErrUnsupported }
func (unsupportedSockets) Bind(int, int) error { return ErrUnsupported }
func (unsupportedSockets) SetFilter(int, []Filter) error { return ErrUnsupported }
func (unsupportedSockets) SetRecvOwnMsgs(int, bool) error { return ErrUnsupported }
func (unsupportedSockets) SetReadTimeout(int, time.Duration) error { return ErrUnsupported }
func (unsupportedSockets) Read(int, []byte) (int, error) { return 0, ErrUnsupported }
func (unsupportedSockets) Send(int, []byte, int) (int, error) { return 0, ErrUnsupported }
func (unsupportedSockets) Close(int) error { return ErrUnsupported }
