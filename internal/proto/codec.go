package proto

import (
	"encoding/binary"
	"fmt"

	"fileshell/internal/errors"
)

// decoder reads little-endian primitives from a frame payload.
// It is intentionally minimal to keep behavior deterministic: every
// read checks the remaining length, so a truncated payload surfaces as
// an error and never as a panic.
type decoder struct {
	b []byte
	o int
}

func (d *decoder) remaining() int { return len(d.b) - d.o }

func (d *decoder) readU8() (byte, error) {
	if d.remaining() < 1 {
		return 0, fmt.Errorf("need 1 byte")
	}
	v := d.b[d.o]
	d.o++
	return v, nil
}

func (d *decoder) readU32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, fmt.Errorf("need 4 bytes")
	}
	v := binary.LittleEndian.Uint32(d.b[d.o : d.o+4])
	d.o += 4
	return v, nil
}

func (d *decoder) readU64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, fmt.Errorf("need 8 bytes")
	}
	v := binary.LittleEndian.Uint64(d.b[d.o : d.o+8])
	d.o += 8
	return v, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length")
	}
	if d.remaining() < n {
		return nil, fmt.Errorf("need %d bytes, have %d", n, d.remaining())
	}
	v := d.b[d.o : d.o+n]
	d.o += n
	return v, nil
}

// readString reads a u16 length-prefixed string bounded by maxLen.
func (d *decoder) readString(maxLen int) (string, error) {
	if d.remaining() < 2 {
		return "", fmt.Errorf("need 2 bytes")
	}
	ln := int(binary.LittleEndian.Uint16(d.b[d.o : d.o+2]))
	d.o += 2
	if ln > maxLen {
		return "", fmt.Errorf("string length %d exceeds limit %d", ln, maxLen)
	}
	b, err := d.readBytes(ln)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readBlob reads a u32 length-prefixed byte slice bounded by maxLen.
// The returned slice is copied out of the frame buffer so it stays
// valid after the buffer is reused for the next datagram.
func (d *decoder) readBlob(maxLen int) ([]byte, error) {
	n, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if int(n) > maxLen {
		return nil, fmt.Errorf("blob length %d exceeds limit %d", n, maxLen)
	}
	b, err := d.readBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *decoder) finish() error {
	if d.remaining() != 0 {
		return fmt.Errorf("%d trailing bytes", d.remaining())
	}
	return nil
}

// encoder builds a little-endian frame, reserving the length prefix up
// front and patching it in finish.
type encoder struct {
	b []byte
}

func newEncoder(capacity int) *encoder {
	e := &encoder{b: make([]byte, FrameHeaderSize, FrameHeaderSize+capacity)}
	return e
}

func (e *encoder) writeU8(v byte) { e.b = append(e.b, v) }

func (e *encoder) writeU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

func (e *encoder) writeU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

// writeString writes a u16 length-prefixed string.
func (e *encoder) writeString(s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("string too long: %d", len(s))
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(len(s)))
	e.b = append(e.b, tmp[:]...)
	e.b = append(e.b, s...)
	return nil
}

// writeBlob writes a u32 length-prefixed byte slice.
func (e *encoder) writeBlob(b []byte) {
	e.writeU32(uint32(len(b)))
	e.b = append(e.b, b...)
}

// finish patches the length prefix and returns the complete frame.
func (e *encoder) finish() ([]byte, error) {
	payload := len(e.b) - FrameHeaderSize
	if payload > MaxFramePayload {
		return nil, fmt.Errorf("payload %d exceeds frame limit %d", payload, MaxFramePayload)
	}
	binary.LittleEndian.PutUint32(e.b[:FrameHeaderSize], uint32(payload))
	return e.b, nil
}

// ── Request codec ────────────────────────────────────────────────────

// EncodeRequest serializes req into a complete frame, length prefix
// included.
func EncodeRequest(req Request) ([]byte, error) {
	e := newEncoder(64)
	e.writeU8(req.reqTag())

	var err error
	switch r := req.(type) {
	case List, CdUp:
		// tag only
	case Cd:
		err = e.writeString(r.Path)
	case Mkdir:
		err = e.writeString(r.Name)
	case Copy:
		if err = e.writeString(r.Src); err == nil {
			err = e.writeString(r.Dst)
		}
	case UploadStart:
		if err = e.writeString(r.Dir); err == nil {
			if err = e.writeString(r.Name); err == nil {
				e.writeU64(r.Size)
			}
		}
	case DownloadStart:
		err = e.writeString(r.Path)
	case UploadChunk:
		if len(r.Data) > MaxChunkSize {
			return nil, fmt.Errorf("chunk data %d exceeds %d", len(r.Data), MaxChunkSize)
		}
		e.writeU32(r.ID)
		e.writeBlob(r.Data)
		e.writeU8(boolByte(r.Last))
	case DownloadChunk:
		e.writeU32(r.ID)
	default:
		return nil, fmt.Errorf("unknown request type %T", req)
	}
	if err != nil {
		return nil, err
	}
	return e.finish()
}

// DecodeRequest parses one frame payload (without the length prefix)
// into a Request. Unknown tags and truncated payloads return a
// *errors.ProtocolError.
func DecodeRequest(payload []byte) (Request, error) {
	d := &decoder{b: payload}
	tag, err := d.readU8()
	if err != nil {
		return nil, errors.Protocol("decode request", err)
	}

	var req Request
	switch tag {
	case tagList:
		req = List{}
	case tagCdUp:
		req = CdUp{}
	case tagCd:
		var r Cd
		r.Path, err = d.readString(MaxPathLen)
		req = r
	case tagMkdir:
		var r Mkdir
		r.Name, err = d.readString(MaxNameLen)
		req = r
	case tagCopy:
		var r Copy
		if r.Src, err = d.readString(MaxPathLen); err == nil {
			r.Dst, err = d.readString(MaxPathLen)
		}
		req = r
	case tagUploadStart:
		var r UploadStart
		if r.Dir, err = d.readString(MaxPathLen); err == nil {
			if r.Name, err = d.readString(MaxNameLen); err == nil {
				r.Size, err = d.readU64()
			}
		}
		req = r
	case tagDownloadStart:
		var r DownloadStart
		r.Path, err = d.readString(MaxPathLen)
		req = r
	case tagUploadChunk:
		var r UploadChunk
		if r.ID, err = d.readU32(); err == nil {
			if r.Data, err = d.readBlob(MaxChunkSize); err == nil {
				var last byte
				if last, err = d.readU8(); err == nil {
					r.Last = last != 0
				}
			}
		}
		req = r
	case tagDownloadChunk:
		var r DownloadChunk
		r.ID, err = d.readU32()
		req = r
	default:
		return nil, errors.Protocolf("decode request", "unknown tag 0x%02x", tag)
	}
	if err != nil {
		return nil, errors.Protocol("decode request", err)
	}
	if err := d.finish(); err != nil {
		return nil, errors.Protocol("decode request", err)
	}
	return req, nil
}

// ── Response codec ───────────────────────────────────────────────────

// EncodeResponse serializes resp into a complete frame, length prefix
// included.
func EncodeResponse(resp Response) ([]byte, error) {
	e := newEncoder(64)
	e.writeU8(resp.respTag())

	var err error
	switch r := resp.(type) {
	case Ok, Busy:
		// tag only
	case Error:
		err = e.writeString(r.Message)
	case Listing:
		e.writeU32(uint32(len(r.Entries)))
		for _, ent := range r.Entries {
			if err = e.writeString(ent.Name); err != nil {
				break
			}
			e.writeU8(boolByte(ent.IsDir))
		}
	case FileMetadata:
		if err = e.writeString(r.Name); err == nil {
			e.writeU64(r.Size)
		}
	case CopyDone:
		e.writeU64(r.Bytes)
	case ChunkAck:
		e.writeU32(r.ID)
	case FileChunk:
		if len(r.Data) > MaxChunkSize {
			return nil, fmt.Errorf("chunk data %d exceeds %d", len(r.Data), MaxChunkSize)
		}
		e.writeU32(r.ID)
		e.writeBlob(r.Data)
		e.writeU8(boolByte(r.Last))
	default:
		return nil, fmt.Errorf("unknown response type %T", resp)
	}
	if err != nil {
		return nil, err
	}
	return e.finish()
}

// DecodeResponse parses one frame payload (without the length prefix)
// into a Response.
func DecodeResponse(payload []byte) (Response, error) {
	d := &decoder{b: payload}
	tag, err := d.readU8()
	if err != nil {
		return nil, errors.Protocol("decode response", err)
	}

	var resp Response
	switch tag {
	case tagOk:
		resp = Ok{}
	case tagBusy:
		resp = Busy{}
	case tagError:
		var r Error
		r.Message, err = d.readString(MaxFramePayload)
		resp = r
	case tagListing:
		var r Listing
		var n uint32
		if n, err = d.readU32(); err == nil {
			// Cap the allocation by what the payload could actually hold
			// (3 bytes per entry minimum) so a lying count cannot balloon.
			if int(n) > d.remaining()/3+1 {
				err = fmt.Errorf("entry count %d exceeds payload", n)
			} else {
				r.Entries = make([]DirEntry, 0, n)
				for i := uint32(0); i < n && err == nil; i++ {
					var ent DirEntry
					if ent.Name, err = d.readString(MaxNameLen); err == nil {
						var isDir byte
						if isDir, err = d.readU8(); err == nil {
							ent.IsDir = isDir != 0
							r.Entries = append(r.Entries, ent)
						}
					}
				}
			}
		}
		resp = r
	case tagFileMetadata:
		var r FileMetadata
		if r.Name, err = d.readString(MaxNameLen); err == nil {
			r.Size, err = d.readU64()
		}
		resp = r
	case tagCopyDone:
		var r CopyDone
		r.Bytes, err = d.readU64()
		resp = r
	case tagChunkAck:
		var r ChunkAck
		r.ID, err = d.readU32()
		resp = r
	case tagFileChunk:
		var r FileChunk
		if r.ID, err = d.readU32(); err == nil {
			if r.Data, err = d.readBlob(MaxChunkSize); err == nil {
				var last byte
				if last, err = d.readU8(); err == nil {
					r.Last = last != 0
				}
			}
		}
		resp = r
	default:
		return nil, errors.Protocolf("decode response", "unknown tag 0x%02x", tag)
	}
	if err != nil {
		return nil, errors.Protocol("decode response", err)
	}
	if err := d.finish(); err != nil {
		return nil, errors.Protocol("decode response", err)
	}
	return resp, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
