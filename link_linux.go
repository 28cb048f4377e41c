//go:build linux

package rtcan

import (
	"fmt"
	"syscall"

	"go.einride.tech/can/pkg/candevice"
)

// SetBitrate takes the interface down, programs the controller bitrate and
// brings it back up. It needs CAP_NET_ADMIN and a real CAN controller;
// virtual interfaces have no bitrate.
func SetBitrate(name string, bitrate uint32) error {
	if !validIfName(name) {
		return fmt.Errorf("invalid interface name %q: %w", name, syscall.ENODEV)
	}
	if bitrate == 0 {
		return fmt.Errorf("%s: bitrate must be above zero", name)
	}
	d, err := candevice.New(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := d.SetDown(); err != nil {
		return fmt.Errorf("set %s down: %w", name, err)
	}
	if err := d.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("set %s bitrate %d: %w", name, bitrate, err)
	}
	if err := d.SetUp(); err != nil {
		return fmt.Errorf("set %s up: %w", name, err)
	}
	return nil
}
