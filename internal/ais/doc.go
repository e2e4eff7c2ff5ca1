// Package ais reassembles !AIVDM sentences into six-bit armored payloads and
// decodes position reports (message types 1, 2, 3, 18 and 19) from them.
//
// Fields a message marks as "not available" decode to nil rather than to a
// sentinel number.
package ais
