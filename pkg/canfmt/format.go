package canfmt

import (
	"fmt"
	"strings"

	"github.com/roffe/rtcan"
)

// Sprint renders f in can-utils notation. maxDLen of 64 selects the CAN FD
// form; sep puts a dot between data bytes.
func Sprint(f rtcan.Frame, sep bool, maxDLen int) string {
	var out strings.Builder
	switch {
	case f.IsError():
		fmt.Fprintf(&out, "%08X#", f.ID&(rtcan.ERRMask|rtcan.ERRFlag))
	case f.IsExtended():
		fmt.Fprintf(&out, "%08X#", f.ID&rtcan.EFFMask)
	default:
		fmt.Fprintf(&out, "%03X#", f.ID&rtcan.SFFMask)
	}

	n := int(f.Len)
	if maxDLen == rtcan.CANFDMaxDLen {
		fmt.Fprintf(&out, "#%X", f.Flags&0x0F)
	} else {
		if maxDLen <= 0 || maxDLen > rtcan.CANMaxDLen {
			maxDLen = rtcan.CANMaxDLen
		}
		if f.IsRemote() {
			out.WriteByte('R')
			if n > 0 && n <= rtcan.CANMaxDLen {
				fmt.Fprintf(&out, "%d", n)
			}
			return out.String()
		}
	}
	if n > maxDLen {
		n = maxDLen
	}
	for i := 0; i < n; i++ {
		if sep && i > 0 {
			out.WriteByte('.')
		}
		fmt.Fprintf(&out, "%02X", f.Data[i])
	}
	return out.String()
}
