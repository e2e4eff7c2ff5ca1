// Package nmea frames NMEA 0183 sentences out of an unstructured byte stream.
//
// The framer is a byte-level state machine: any non-printable byte or
// checksum mismatch drops the sentence in progress and scanning continues
// with the next start character. Sentences over MaxFields fields or MaxChars
// characters are dropped the same way.
package nmea
