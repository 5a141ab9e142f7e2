package proto

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshell/internal/errors"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"list", List{}},
		{"cd up", CdUp{}},
		{"cd", Cd{Path: "projects/demo"}},
		{"mkdir", Mkdir{Name: "incoming"}},
		{"copy", Copy{Src: "a.bin", Dst: "backup/a.bin"}},
		{"upload start", UploadStart{Dir: "incoming", Name: "f.txt", Size: 1 << 32}},
		{"upload start cwd", UploadStart{Dir: "", Name: "f.txt", Size: 10}},
		{"download start", DownloadStart{Path: "f.txt"}},
		{"upload chunk", UploadChunk{ID: 7, Data: []byte("hello chunk"), Last: false}},
		{"upload chunk last empty", UploadChunk{ID: 8, Data: []byte{}, Last: true}},
		{"download chunk", DownloadChunk{ID: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeRequest(tt.req)
			require.NoError(t, err)

			payload, err := DecodeDatagram(frame)
			require.NoError(t, err)

			got, err := DecodeRequest(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.req, got)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"ok", Ok{}},
		{"busy", Busy{}},
		{"error", Error{Message: "mkdir failed: file exists"}},
		{"listing empty", Listing{Entries: []DirEntry{}}},
		{"listing", Listing{Entries: []DirEntry{
			{Name: "docs", IsDir: true},
			{Name: "a.bin", IsDir: false},
		}}},
		{"metadata", FileMetadata{Name: "a.bin", Size: 123456789}},
		{"copy done", CopyDone{Bytes: 4096}},
		{"chunk ack", ChunkAck{ID: 0}},
		{"file chunk", FileChunk{ID: 3, Data: bytes.Repeat([]byte{0xAB}, MaxChunkSize), Last: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeResponse(tt.resp)
			require.NoError(t, err)

			payload, err := DecodeDatagram(frame)
			require.NoError(t, err)

			got, err := DecodeResponse(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, got)
		})
	}
}

// TestDecodeMalformed feeds the decoder truncated and corrupted
// payloads. Every case must fail with a ProtocolError and never panic.
func TestDecodeMalformed(t *testing.T) {
	valid, err := EncodeRequest(UploadChunk{ID: 1, Data: []byte("abcdef"), Last: true})
	require.NoError(t, err)
	payload, err := DecodeDatagram(valid)
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":          {},
		"unknown tag":    {0x7F},
		"zero tag":       {0x00},
		"cd no string":   {0x03},
		"cd short len":   {0x03, 0x05},
		"cd lying len":   {0x03, 0xFF, 0xFF},
		"chunk half id":  payload[:3],
		"chunk no data":  payload[:5],
		"chunk cut data": payload[:len(payload)-3],
		"trailing bytes": append(append([]byte{}, payload...), 0x00),
	}

	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest(b)
			require.Error(t, err)
			assert.True(t, errors.IsProtocol(err), "want ProtocolError, got %v", err)
		})
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	cases := map[string][]byte{
		"unknown tag":       {0x40},
		"listing bad count": {0x83, 0xFF, 0xFF, 0xFF, 0xFF},
		"metadata cut":      {0x84, 0x04, 0x00, 'a', 'b'},
		"ack short":         {0x86, 0x01},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResponse(b)
			require.Error(t, err)
			assert.True(t, errors.IsProtocol(err))
		})
	}
}

func TestFrameStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, Mkdir{Name: "x"}))
	require.NoError(t, WriteRequest(&buf, List{}))
	require.NoError(t, WriteResponse(&buf, Ok{}))

	r1, err := ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, Mkdir{Name: "x"}, r1)

	r2, err := ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, List{}, r2)

	r3, err := ReadResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, Ok{}, r3)

	_, err = ReadRequest(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameLimits(t *testing.T) {
	// Length prefix claiming more than the frame limit must be rejected
	// before any allocation.
	huge := []byte{0xFF, 0xFF, 0xFF, 0x7F}
	_, err := ReadFrame(bytes.NewReader(huge))
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))

	// Truncated body.
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, Cd{Path: "somewhere"}))
	cut := buf.Bytes()[:buf.Len()-2]
	_, err = ReadFrame(bytes.NewReader(cut))
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
}

func TestDecodeDatagramExact(t *testing.T) {
	frame, err := EncodeRequest(List{})
	require.NoError(t, err)

	// Trailing garbage after the framed payload is a protocol error on
	// the datagram transport.
	_, err = DecodeDatagram(append(frame, 0xEE))
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))

	_, err = DecodeDatagram(frame[:2])
	require.Error(t, err)
}

// TestChunkFrameFitsDatagram pins the sizing invariant: a full-size
// chunk frame stays well under the UDP ceiling.
func TestChunkFrameFitsDatagram(t *testing.T) {
	frame, err := EncodeResponse(FileChunk{ID: 1, Data: make([]byte, MaxChunkSize), Last: false})
	require.NoError(t, err)
	assert.True(t, FitsDatagram(frame))
	assert.Less(t, len(frame), MaxDatagramSize/4)
}

func TestEncodeOversizedChunk(t *testing.T) {
	_, err := EncodeRequest(UploadChunk{ID: 0, Data: make([]byte, MaxChunkSize+1)})
	require.Error(t, err)
	_, err = EncodeResponse(FileChunk{ID: 0, Data: make([]byte, MaxChunkSize+1)})
	require.Error(t, err)
}
