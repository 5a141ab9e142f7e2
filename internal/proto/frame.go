package proto

import (
	"encoding/binary"
	"io"

	"fileshell/internal/errors"
)

// Stream framing: on a reliable byte stream, frames are delimited by
// their u32 length prefix. ReadFrame and the typed wrappers below are
// used by the TCP transport; the UDP transport decodes whole datagrams
// with DecodeDatagram instead.

// ReadFrame reads one length-prefixed payload from r. It returns only
// the payload, prefix stripped.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Protocol("read frame", err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, errors.Protocolf("read frame", "empty payload")
	}
	if n > MaxFramePayload {
		return nil, errors.Protocolf("read frame", "payload %d exceeds limit %d", n, MaxFramePayload)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Protocol("read frame", err)
	}
	return payload, nil
}

// ReadRequest reads and decodes one Request frame from r.
func ReadRequest(r io.Reader) (Request, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeRequest(payload)
}

// ReadResponse reads and decodes one Response frame from r.
func ReadResponse(r io.Reader) (Response, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(payload)
}

// WriteRequest encodes req and writes the frame to w.
func WriteRequest(w io.Writer, req Request) error {
	frame, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// WriteResponse encodes resp and writes the frame to w.
func WriteResponse(w io.Writer, resp Response) error {
	frame, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// DecodeDatagram parses a whole datagram as one frame. The length
// prefix must account for every remaining byte: a datagram is never
// allowed to carry trailing garbage or a second frame.
func DecodeDatagram(b []byte) ([]byte, error) {
	if len(b) < FrameHeaderSize {
		return nil, errors.Protocolf("read frame", "datagram of %d bytes is shorter than the header", len(b))
	}
	n := binary.LittleEndian.Uint32(b[:FrameHeaderSize])
	if int(n) != len(b)-FrameHeaderSize {
		return nil, errors.Protocolf("read frame",
			"length prefix %d does not match datagram payload %d", n, len(b)-FrameHeaderSize)
	}
	if n == 0 {
		return nil, errors.Protocolf("read frame", "empty payload")
	}
	return b[FrameHeaderSize:], nil
}

// DecodeDatagramRequest parses a whole datagram into a Request.
func DecodeDatagramRequest(b []byte) (Request, error) {
	payload, err := DecodeDatagram(b)
	if err != nil {
		return nil, err
	}
	return DecodeRequest(payload)
}

// DecodeDatagramResponse parses a whole datagram into a Response.
func DecodeDatagramResponse(b []byte) (Response, error) {
	payload, err := DecodeDatagram(b)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(payload)
}

// FitsDatagram reports whether an encoded frame fits a single datagram.
func FitsDatagram(frame []byte) bool {
	return len(frame) <= MaxDatagramSize
}
