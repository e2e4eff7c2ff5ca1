//go:build !linux

package transport

import (
	"fmt"
	"os"
)

func OpenSerial(path string, baud int) (*os.File, error) {
	return nil, fmt.Errorf("serial not supported on this platform")
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800:
		return uint32(baud), nil
	default:
		return 0, fmt.Errorf("unsupported baud %d", baud)
	}
}
