// Package gps keeps the current GNSS fix from NMEA RMC and GGA sentences.
//
// Sentences are framed and checksum-verified by internal/nmea and then parsed
// with go-nmea. Only fields a receiver actually reported are set in the
// snapshot.
package gps
