package rtcan

import (
	"net"
	"sort"
	"strings"
)

// FindDevices lists the host network interfaces that look like CAN devices
// (can0, vcan0, slcan0 and so on).
func FindDevices() (dev []string) {
	iFaces, _ := net.Interfaces()
	for _, i := range iFaces {
		if strings.Contains(i.Name, "can") {
			dev = append(dev, i.Name)
		}
	}
	sort.Strings(dev)
	return
}
