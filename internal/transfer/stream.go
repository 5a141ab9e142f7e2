// Package transfer moves file bytes between a handle and a transport.
//
// It has two operating modes. Streaming mode rides a reliable byte
// stream: raw bytes are copied directly, with the transport's own
// ordering and delivery trusted. Chunked mode rides an unreliable
// datagram transport: the engine cuts the stream into sequenced chunks
// and drives a per-chunk acknowledgment / timeout / retransmission
// loop, so that lost or reordered datagrams never corrupt the
// reassembled file.
package transfer

import (
	"fmt"
	"io"

	"fileshell/util"
)

// Stream copies exactly size bytes from src to dst using pooled
// buffers. It returns the number of bytes copied; a short read is an
// error (the peer vanished mid-transfer, leaving a partial file —
// deliberately not rolled back).
func Stream(dst io.Writer, src io.Reader, size uint64) (uint64, error) {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	var done uint64
	for done < size {
		want := uint64(len(buf))
		if remaining := size - done; remaining < want {
			want = remaining
		}
		n, err := src.Read(buf[:want])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, fmt.Errorf("write at byte %d: %w", done, werr)
			}
			done += uint64(n)
		}
		if err != nil {
			if err == io.EOF && done == size {
				break
			}
			return done, fmt.Errorf("read at byte %d: %w", done, err)
		}
	}
	return done, nil
}
