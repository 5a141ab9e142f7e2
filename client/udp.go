package client

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"fileshell/internal/errors"
	"fileshell/internal/metrics"
	"fileshell/internal/proto"
	"fileshell/internal/transfer"
	"fileshell/util"
)

// UDPClient speaks the datagram protocol over a connected UDP socket.
// Control requests are single-shot; chunk traffic is retransmitted by
// the transfer engine, which relies on read-deadline timeouts from
// RoundTrip. Not safe for concurrent use.
type UDPClient struct {
	conn    *net.UDPConn
	timeout time.Duration // per-reply wait
	engine  *transfer.Engine
	logger  *util.Logger
	buf     []byte
}

// DialUDP binds a connected datagram socket to the server address.
func DialUDP(addr string, timeout time.Duration, retries int, logger *util.Logger, m *metrics.Collector) (*UDPClient, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrap("resolve", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, ua)
	if err != nil {
		return nil, errors.Wrap("dial", addr, err)
	}
	logger.Verbose("datagram socket bound to %s", addr)
	return &UDPClient{
		conn:    conn,
		timeout: timeout,
		engine:  &transfer.Engine{Attempts: retries, Logger: logger, Metrics: m},
		logger:  logger,
		buf:     make([]byte, proto.MaxDatagramSize),
	}, nil
}

// Close releases the socket.
func (c *UDPClient) Close() error { return c.conn.Close() }

// RoundTrip sends one encoded frame and waits for the reply datagram.
// A deadline expiry surfaces as a net.Error timeout, which the
// transfer engine treats as a lost packet.
func (c *UDPClient) RoundTrip(frame []byte) (proto.Response, error) {
	if !proto.FitsDatagram(frame) {
		return nil, errors.Protocol("send", fmt.Errorf("frame of %d bytes exceeds datagram limit", len(frame)))
	}
	if _, err := c.conn.Write(frame); err != nil {
		return nil, err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return nil, err
	}
	return proto.DecodeDatagramResponse(c.buf[:n])
}

// request runs one control round trip, translating Error replies.
func (c *UDPClient) request(req proto.Request) (proto.Response, error) {
	frame, err := proto.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.RoundTrip(frame)
	if err != nil {
		return nil, err
	}
	if e, ok := resp.(proto.Error); ok {
		return nil, errors.New(e.Message)
	}
	return resp, nil
}

func (c *UDPClient) expectOk(req proto.Request) error {
	resp, err := c.request(req)
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
func (c *UDPClient) List() ([]proto.DirEntry, error) {
	resp, err := c.request(proto.List{})
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
func (c *UDPClient) Cd(path string) error { return c.expectOk(proto.Cd{Path: path}) }

// CdUp moves the session one directory up.
func (c *UDPClient) CdUp() error { return c.expectOk(proto.CdUp{}) }

// Mkdir creates a directory under the session's cwd.
func (c *UDPClient) Mkdir(name string) error { return c.expectOk(proto.Mkdir{Name: name}) }

// Copy duplicates a remote file server-side and reports bytes copied.
func (c *UDPClient) Copy(src, dst string) (uint64, error) {
	resp, err := c.request(proto.Copy{Src: src, Dst: dst})
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

// Upload pushes a local file to the server in acknowledged chunks.
func (c *UDPClient) Upload(ctx context.Context, localPath, remoteDir, remoteName string) (uint64, error) {
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
	return c.engine.Upload(ctx, c, f, size)
}

// Download pulls a remote file in acknowledged chunks into localPath
// (the remote base name when empty).
func (c *UDPClient) Download(ctx context.Context, remotePath, localPath string) (uint64, error) {
	resp, err := c.request(proto.DownloadStart{Path: remotePath})
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

	n, err := c.engine.Download(ctx, c, f)
	if err != nil {
		return n, err
	}
	if n != meta.Size {
		return n, fmt.Errorf("size mismatch: announced %d, received %d", meta.Size, n)
	}
	return n, f.Sync()
}
