package transport

import (
	"context"
	"errors"
	"io"
)

var ErrClosed = errors.New("transport: closed")

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 1024

// Pump reads r until EOF, an error or cancellation, handing each chunk to
// onChunk. The chunk is a fresh copy and may be retained. EOF and
// cancellation return nil.
func Pump(ctx context.Context, r io.Reader, size int, onChunk func([]byte) error) error {
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if herr := onChunk(chunk); herr != nil {
				return herr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
