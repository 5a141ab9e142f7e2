// Package client implements the stream and datagram sides of the
// file-operation protocol: framed control requests plus raw-byte
// (stream) or chunked (datagram) transfer phases.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"fileshell/internal/errors"
	"fileshell/internal/proto"
	"fileshell/internal/transfer"
	"fileshell/util"
)

// TCPClient speaks the framed protocol over a single stream
// connection. It is not safe for concurrent use.
type TCPClient struct {
	conn   net.Conn
	logger *util.Logger
}

// DialTCP connects to a stream server.
func DialTCP(ctx context.Context, addr string, timeout time.Duration, logger *util.Logger) (*TCPClient, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap("dial", addr, err)
	}
	logger.Verbose("connected to %s", addr)
	return &TCPClient{conn: conn, logger: logger}, nil
}

// Close releases the connection.
func (c *TCPClient) Close() error { return c.conn.Close() }

// roundTrip writes one request and decodes the server's reply,
// translating Busy and Error responses into errors.
func (c *TCPClient) roundTrip(req proto.Request) (proto.Response, error) {
	if err := proto.WriteRequest(c.conn, req); err != nil {
		return nil, fmt.Errorf("send %T: %w", req, err)
	}
	return c.readResponse()
}

func (c *TCPClient) readResponse() (proto.Response, error) {
	resp, err := proto.ReadResponse(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch r := resp.(type) {
	case proto.Busy:
		return nil, errors.ErrServerBusy
	case proto.Error:
		return nil, errors.New(r.Message)
	}
	return resp, nil
}

// expectOk runs a request whose only success answer is Ok.
func (c *TCPClient) expectOk(req proto.Request) error {
	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if _, ok := resp.(proto.Ok); !ok {
		return fmt.Errorf("unexpected response %T", resp)
	}
	return nil
}

// ── Directory operations ─────────────────────────────────────────────

// List fetches the current directory's entries.
func (c *TCPClient) List() ([]proto.DirEntry, error) {
	resp, err := c.roundTrip(proto.List{})
	if err != nil {
		return nil, err
	}
	listing, ok := resp.(proto.Listing)
	if !ok {
		return nil, fmt.Errorf("unexpected response %T", resp)
	}
	return listing.Entries, nil
}

// Cd changes the session's working directory.
func (c *TCPClient) Cd(path string) error { return c.expectOk(proto.Cd{Path: path}) }

// CdUp moves the session one directory up.
func (c *TCPClient) CdUp() error { return c.expectOk(proto.CdUp{}) }

// Mkdir creates a directory under the session's cwd.
func (c *TCPClient) Mkdir(name string) error { return c.expectOk(proto.Mkdir{Name: name}) }

// Copy duplicates a remote file server-side and reports bytes copied.
func (c *TCPClient) Copy(src, dst string) (uint64, error) {
	resp, err := c.roundTrip(proto.Copy{Src: src, Dst: dst})
	if err != nil {
		return 0, err
	}
	done, ok := resp.(proto.CopyDone)
	if !ok {
		return 0, fmt.Errorf("unexpected response %T", resp)
	}
	return done.Bytes, nil
}

// ── Transfers ────────────────────────────────────────────────────────

// Upload streams a local file to the server. remoteName defaults to
// the local base name; remoteDir may be empty for the session's cwd.
func (c *TCPClient) Upload(localPath, remoteDir, remoteName string) (uint64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", localPath)
	}
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	size := uint64(info.Size())

	if err := c.expectOk(proto.UploadStart{Dir: remoteDir, Name: remoteName, Size: size}); err != nil {
		return 0, err
	}

	// Accepted: the connection is now a raw byte pipe for exactly
	// size bytes, then framing resumes with the server's verdict.
	n, err := transfer.Stream(c.conn, f, size)
	if err != nil {
		return n, fmt.Errorf("stream upload: %w", err)
	}
	c.logger.Verbose("upload %q: %d bytes sent, awaiting confirmation", remoteName, n)

	if _, err := c.readResponse(); err != nil {
		return n, err
	}
	return n, nil
}

// Download fetches a remote file into localPath (the remote base name
// when empty).
func (c *TCPClient) Download(remotePath, localPath string) (uint64, error) {
	resp, err := c.roundTrip(proto.DownloadStart{Path: remotePath})
	if err != nil {
		return 0, err
	}
	meta, ok := resp.(proto.FileMetadata)
	if !ok {
		return 0, fmt.Errorf("unexpected response %T", resp)
	}
	if localPath == "" {
		localPath = meta.Name
	}

	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := transfer.Stream(f, io.LimitReader(c.conn, int64(meta.Size)), meta.Size)
	if err != nil {
		return n, fmt.Errorf("stream download: %w", err)
	}
	if err := f.Sync(); err != nil {
		return n, err
	}
	c.logger.Verbose("download %q: %d bytes received", meta.Name, n)
	return n, nil
}
