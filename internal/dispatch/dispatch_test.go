package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshell/internal/fsbox"
	"fileshell/internal/proto"
	"fileshell/internal/session"
	"fileshell/util"
)

func newDispatcher(t *testing.T, mode Mode) (*Dispatcher, *fsbox.Box, *session.Session) {
	t.Helper()
	fs, err := fsbox.New(t.TempDir())
	require.NoError(t, err)
	d := New(fs, mode, util.NewLogger(0), nil)
	s, _ := session.NewManager(0, util.NewLogger(0), nil).GetOrCreate("test-client")
	return d, fs, s
}

func TestMkdirCdList(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)

	resp := d.Handle(s, proto.Mkdir{Name: "x"})
	assert.Equal(t, proto.Ok{}, resp)

	resp = d.Handle(s, proto.Cd{Path: "x"})
	assert.Equal(t, proto.Ok{}, resp)
	assert.Equal(t, "x", s.CWD)

	resp = d.Handle(s, proto.List{})
	listing, ok := resp.(proto.Listing)
	require.True(t, ok, "got %T", resp)
	assert.Empty(t, listing.Entries)
}

func TestCdEscapeLeavesCwdUntouched(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.Mkdir{Name: "a"}))
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.Cd{Path: "a"}))

	resp := d.Handle(s, proto.Cd{Path: "../../etc"})
	_, isErr := resp.(proto.Error)
	assert.True(t, isErr)
	assert.Equal(t, "a", s.CWD, "failed cd must not move the session")
}

func TestCdUp(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.Mkdir{Name: "a"}))
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.Cd{Path: "a"}))

	assert.Equal(t, proto.Ok{}, d.Handle(s, proto.CdUp{}))
	assert.Equal(t, "", s.CWD)

	// At the root, up is refused and the cwd stays put.
	resp := d.Handle(s, proto.CdUp{})
	_, isErr := resp.(proto.Error)
	assert.True(t, isErr)
	assert.Equal(t, "", s.CWD)
}

func TestCopy(t *testing.T) {
	d, fs, s := newDispatcher(t, Datagram)
	require.NoError(t, os.WriteFile(filepath.Join(fs.Root(), "src"), []byte("12345"), 0o644))

	resp := d.Handle(s, proto.Copy{Src: "src", Dst: "dst"})
	assert.Equal(t, proto.CopyDone{Bytes: 5}, resp)

	resp = d.Handle(s, proto.Copy{Src: "ghost", Dst: "dst"})
	_, isErr := resp.(proto.Error)
	assert.True(t, isErr)
}

// TestUploadScenario walks the canonical single-chunk upload exchange.
func TestUploadScenario(t *testing.T) {
	d, fs, s := newDispatcher(t, Datagram)
	payload := []byte("ten bytes!")

	resp := d.Handle(s, proto.UploadStart{Name: "f.txt", Size: 10})
	assert.Equal(t, proto.Ok{}, resp)
	require.NotNil(t, s.Transfer)

	resp = d.Handle(s, proto.UploadChunk{ID: 0, Data: payload, Last: true})
	assert.Equal(t, proto.ChunkAck{ID: 0}, resp)

	got, err := os.ReadFile(filepath.Join(fs.Root(), "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUploadChunkSequencing(t *testing.T) {
	d, fs, s := newDispatcher(t, Datagram)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.UploadStart{Name: "seq.bin", Size: 6}))

	// Future chunk: silent discard.
	resp := d.Handle(s, proto.UploadChunk{ID: 2, Data: []byte("zzz"), Last: false})
	assert.Nil(t, resp)

	require.Equal(t, proto.ChunkAck{ID: 0},
		d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("abc"), Last: false}))

	// Duplicate: re-acked, not re-applied.
	require.Equal(t, proto.ChunkAck{ID: 0},
		d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("abc"), Last: false}))

	require.Equal(t, proto.ChunkAck{ID: 1},
		d.Handle(s, proto.UploadChunk{ID: 1, Data: []byte("def"), Last: true}))

	got, err := os.ReadFile(filepath.Join(fs.Root(), "seq.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), got)
}

func TestChunkWithoutTransfer(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)

	resp := d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("x"), Last: true})
	e, ok := resp.(proto.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "no active transfer")

	resp = d.Handle(s, proto.DownloadChunk{ID: 0})
	_, ok = resp.(proto.Error)
	assert.True(t, ok)
}

func TestSecondTransferRejected(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.UploadStart{Name: "a.bin", Size: 100}))

	resp := d.Handle(s, proto.UploadStart{Name: "b.bin", Size: 100})
	e, ok := resp.(proto.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "transfer already active")

	resp = d.Handle(s, proto.DownloadStart{Path: "a.bin"})
	_, ok = resp.(proto.Error)
	assert.True(t, ok)
}

func TestDownloadScenario(t *testing.T) {
	d, fs, s := newDispatcher(t, Datagram)
	data := []byte("file payload for download")
	require.NoError(t, os.WriteFile(filepath.Join(fs.Root(), "d.bin"), data, 0o644))

	resp := d.Handle(s, proto.DownloadStart{Path: "d.bin"})
	meta, ok := resp.(proto.FileMetadata)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "d.bin", meta.Name)
	assert.Equal(t, uint64(len(data)), meta.Size)

	resp = d.Handle(s, proto.DownloadChunk{ID: 0})
	chunk, ok := resp.(proto.FileChunk)
	require.True(t, ok)
	assert.Equal(t, data, chunk.Data)
	assert.True(t, chunk.Last)

	// The reply was lost; the same id must replay byte-identically.
	replay := d.Handle(s, proto.DownloadChunk{ID: 0})
	assert.Equal(t, resp, replay)

	// A wild id is ignored.
	assert.Nil(t, d.Handle(s, proto.DownloadChunk{ID: 9}))
}

// TestCompletedTransferReplaced verifies a finished transfer does not
// block the next one.
func TestCompletedTransferReplaced(t *testing.T) {
	d, _, s := newDispatcher(t, Datagram)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.UploadStart{Name: "one.bin", Size: 1}))
	require.Equal(t, proto.ChunkAck{ID: 0},
		d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("x"), Last: true}))

	resp := d.Handle(s, proto.UploadStart{Name: "two.bin", Size: 1})
	assert.Equal(t, proto.Ok{}, resp)
}

func TestChunkMessagesRejectedOnStream(t *testing.T) {
	d, _, s := newDispatcher(t, Stream)
	require.Equal(t, proto.Ok{}, d.Handle(s, proto.UploadStart{Name: "f", Size: 1}))

	resp := d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("x"), Last: true})
	e, ok := resp.(proto.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "datagram-only")
}

func TestUploadIntoSubdirectory(t *testing.T) {
	d, fs, s := newDispatcher(t, Datagram)

	require.Equal(t, proto.Ok{},
		d.Handle(s, proto.UploadStart{Dir: "inbox", Name: "n.txt", Size: 2}))
	require.Equal(t, proto.ChunkAck{ID: 0},
		d.Handle(s, proto.UploadChunk{ID: 0, Data: []byte("hi"), Last: true}))

	got, err := os.ReadFile(filepath.Join(fs.Root(), "inbox", "n.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}
