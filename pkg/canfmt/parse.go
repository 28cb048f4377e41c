package canfmt

import (
	"fmt"
	"strings"

	"github.com/roffe/rtcan"
)

// Parse reads one frame in can-utils notation. fd reports whether the text
// described a CAN FD frame (the "##" form).
func Parse(s string) (f rtcan.Frame, fd bool, err error) {
	idx := strings.IndexByte(s, '#')
	switch idx {
	case 3:
		id, err := hexValue(s[:3])
		if err != nil {
			return f, false, err
		}
		f.ID = id
	case 8:
		id, err := hexValue(s[:8])
		if err != nil {
			return f, false, err
		}
		f.ID = id
		if f.ID&rtcan.ERRFlag == 0 {
			f.ID |= rtcan.EFFFlag
		}
	default:
		return f, false, fmt.Errorf("%w: %q: identifier must be 3 or 8 hex digits", ErrBadFrame, s)
	}

	rest := s[idx+1:]
	maxLen := rtcan.CANMaxDLen
	switch {
	case strings.HasPrefix(rest, "R"):
		f.ID |= rtcan.RTRFlag
		switch len(rest) {
		case 1:
		case 2:
			if rest[1] < '0' || rest[1] > '8' {
				return f, false, fmt.Errorf("%w: %q: bad remote request length", ErrBadFrame, s)
			}
			f.Len = rest[1] - '0'
		default:
			return f, false, fmt.Errorf("%w: %q: trailing data after remote request", ErrBadFrame, s)
		}
		return f, false, nil
	case strings.HasPrefix(rest, "#"):
		if len(rest) < 2 {
			return f, false, fmt.Errorf("%w: %q: missing CAN FD flags", ErrBadFrame, s)
		}
		flags, ok := nibble(rest[1])
		if !ok {
			return f, false, fmt.Errorf("%w: %q: bad CAN FD flags", ErrBadFrame, s)
		}
		f.Flags = flags
		rest = rest[2:]
		maxLen = rtcan.CANFDMaxDLen
		fd = true
	}

	n := 0
	for i := 0; i < len(rest); {
		if rest[i] == '.' {
			i++
			continue
		}
		if n >= maxLen {
			return f, fd, fmt.Errorf("%w: %q: more than %d data bytes", ErrBadFrame, s, maxLen)
		}
		if i+1 >= len(rest) {
			return f, fd, fmt.Errorf("%w: %q: odd number of hex digits", ErrBadFrame, s)
		}
		hi, ok1 := nibble(rest[i])
		lo, ok2 := nibble(rest[i+1])
		if !ok1 || !ok2 {
			return f, fd, fmt.Errorf("%w: %q: bad data byte %q", ErrBadFrame, s, rest[i:i+2])
		}
		f.Data[n] = hi<<4 | lo
		n++
		i += 2
	}
	f.Len = uint8(n)
	return f, fd, nil
}

func hexValue(s string) (uint32, error) {
	var v uint32
	for i := 0; i < len(s); i++ {
		n, ok := nibble(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: bad identifier %q", ErrBadFrame, s)
		}
		v = v<<4 | uint32(n)
	}
	return v, nil
}

func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
