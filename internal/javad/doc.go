// Package javad finds Javad GREIS style binary messages in a byte buffer.
//
// A message is framed as a two character name, three upper-case hex digits of
// declared size, size-1 payload bytes and a one byte rotate-XOR checksum over
// everything before it. There is no delimiter, so matching is done against
// the 5-byte signature of each registered Spec.
package javad
