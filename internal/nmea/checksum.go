package nmea

import (
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
)

// Checksum returns the two uppercase hex digits of the XOR checksum of body,
// where body is the text between the start character and '*'.
func Checksum(body string) string {
	return gonmea.Checksum(body)
}

// WithChecksum returns sentence with a freshly computed "*HH" suffix. Any
// existing checksum suffix is replaced. The sentence must begin with '$' or '!'.
func WithChecksum(sentence string) string {
	if len(sentence) < 1 || (sentence[0] != '$' && sentence[0] != '!') {
		return sentence
	}
	body := sentence[1:]
	if star := strings.IndexByte(body, '*'); star >= 0 {
		body = body[:star]
	}
	return sentence[:1] + body + "*" + Checksum(body)
}
