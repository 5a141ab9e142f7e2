// Package proto defines the fileshell wire protocol: the Request and
// Response vocabulary shared by the stream and datagram transports, and
// a length-prefixed binary codec for it.
//
// Every message is one frame: a u32 little-endian payload length
// followed by the payload. The payload starts with a one-byte tag
// identifying the variant. On the stream transport frames follow each
// other on the connection (with raw file bytes in between during
// streaming transfers); on the datagram transport each datagram carries
// exactly one frame.
package proto

// ── Protocol limits ──────────────────────────────────────────────────

const (
	// FrameHeaderSize is the length prefix in front of every payload.
	FrameHeaderSize = 4

	// MaxDatagramSize is the practical ceiling for a single UDP payload.
	MaxDatagramSize = 65507

	// MaxChunkSize bounds one transfer chunk's data. Chunk frames must
	// fit a single datagram with room to spare for framing.
	MaxChunkSize = 8 * 1024

	// MaxFramePayload bounds a decoded payload on either transport.
	MaxFramePayload = MaxDatagramSize - FrameHeaderSize

	// MaxPathLen and MaxNameLen bound path and name strings on the wire.
	MaxPathLen = 4096
	MaxNameLen = 255
)

// ── Request variants ─────────────────────────────────────────────────

// Request tags. The zero value is deliberately unused so an all-zero
// buffer never decodes as a valid message.
const (
	tagList          byte = 0x01
	tagCdUp          byte = 0x02
	tagCd            byte = 0x03
	tagMkdir         byte = 0x04
	tagCopy          byte = 0x05
	tagUploadStart   byte = 0x06
	tagDownloadStart byte = 0x07
	tagUploadChunk   byte = 0x08
	tagDownloadChunk byte = 0x09
)

// Request is one decoded client request.
type Request interface {
	reqTag() byte
}

// List asks for the entries of the session's current directory.
type List struct{}

// CdUp moves the session's current directory one level up, never above
// the sandbox root.
type CdUp struct{}

// Cd changes the session's current directory.
type Cd struct {
	Path string
}

// Mkdir creates a directory under the session's current directory.
type Mkdir struct {
	Name string
}

// Copy duplicates a file, both paths resolved against the current
// directory.
type Copy struct {
	Src string
	Dst string
}

// UploadStart announces an incoming file of Size bytes. On the stream
// transport the raw bytes follow the server's Ok frame; on the datagram
// transport the client sends UploadChunk messages instead.
type UploadStart struct {
	Dir  string // destination directory, "" or "." for the current one
	Name string
	Size uint64
}

// DownloadStart asks the server to send a file. The server answers
// with FileMetadata; on the stream transport the raw bytes follow, on
// the datagram transport the client pulls FileChunk frames with
// DownloadChunk requests.
type DownloadStart struct {
	Path string
}

// UploadChunk carries one sequenced piece of an upload (datagram only).
type UploadChunk struct {
	ID   uint32
	Data []byte
	Last bool
}

// DownloadChunk requests the chunk with the given id (datagram only).
type DownloadChunk struct {
	ID uint32
}

func (List) reqTag() byte          { return tagList }
func (CdUp) reqTag() byte          { return tagCdUp }
func (Cd) reqTag() byte            { return tagCd }
func (Mkdir) reqTag() byte         { return tagMkdir }
func (Copy) reqTag() byte          { return tagCopy }
func (UploadStart) reqTag() byte   { return tagUploadStart }
func (DownloadStart) reqTag() byte { return tagDownloadStart }
func (UploadChunk) reqTag() byte   { return tagUploadChunk }
func (DownloadChunk) reqTag() byte { return tagDownloadChunk }

// ── Response variants ────────────────────────────────────────────────

const (
	tagOk           byte = 0x81
	tagError        byte = 0x82
	tagListing      byte = 0x83
	tagFileMetadata byte = 0x84
	tagCopyDone     byte = 0x85
	tagChunkAck     byte = 0x86
	tagFileChunk    byte = 0x87
	tagBusy         byte = 0x88
)

// Response is one decoded server response.
type Response interface {
	respTag() byte
}

// Ok acknowledges a request with no payload to return.
type Ok struct{}

// Error carries a human-readable failure message. Session state is
// unchanged by whatever produced it.
type Error struct {
	Message string
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Listing answers a List request.
type Listing struct {
	Entries []DirEntry
}

// FileMetadata announces the file a DownloadStart resolved to.
type FileMetadata struct {
	Name string
	Size uint64
}

// CopyDone reports how many bytes a Copy duplicated.
type CopyDone struct {
	Bytes uint64
}

// ChunkAck acknowledges receipt of the chunk with the given id
// (datagram only).
type ChunkAck struct {
	ID uint32
}

// FileChunk carries one sequenced piece of a download (datagram only).
type FileChunk struct {
	ID   uint32
	Data []byte
	Last bool
}

// Busy is the arbiter's rejection of a second concurrent stream client.
type Busy struct{}

func (Ok) respTag() byte           { return tagOk }
func (Error) respTag() byte        { return tagError }
func (Listing) respTag() byte      { return tagListing }
func (FileMetadata) respTag() byte { return tagFileMetadata }
func (CopyDone) respTag() byte     { return tagCopyDone }
func (ChunkAck) respTag() byte     { return tagChunkAck }
func (FileChunk) respTag() byte    { return tagFileChunk }
func (Busy) respTag() byte         { return tagBusy }
