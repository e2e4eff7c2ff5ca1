package transport

import (
	"fmt"
	"os"
)

// SupportedBaud reports whether OpenSerial accepts baud.
func SupportedBaud(baud int) bool {
	_, err := baudToUnix(baud)
	return err == nil
}

// DetectSerial returns the first USB serial device present, or "".
func DetectSerial() string {
	for _, pattern := range []string{"/dev/ttyACM%d", "/dev/ttyUSB%d"} {
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf(pattern, i)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
