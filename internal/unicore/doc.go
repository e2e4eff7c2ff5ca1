// Package unicore decodes Unicore binary messages framed by the AA 44 B5
// preamble, a 24-byte header and a trailing CRC32.
//
// Only the AGRICB message (id 11276, 228 payload bytes) is decoded. Any other
// header, and any frame whose CRC does not match, is skipped by moving three
// bytes past its preamble and searching again.
package unicore
