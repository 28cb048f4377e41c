//go:build !linux

package rtcan

func SetBitrate(string, uint32) error {
	return ErrUnsupported
}
