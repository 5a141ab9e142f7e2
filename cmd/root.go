// Package cmd wires up the CLI flags and dispatches to the server or
// client side.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"fileshell/client"
	"fileshell/config"
	"fileshell/internal/metrics"
	"fileshell/internal/proto"
	"fileshell/server"
	"fileshell/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X fileshell/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate fileshell mode.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{
		TCPAddr:      config.DefaultTCPAddr,
		UDPAddr:      config.DefaultUDPAddr,
		ChunkTimeout: config.DefaultChunkTimeout,
		ChunkRetries: config.DefaultChunkRetries,
		IdleTimeout:  config.DefaultIdleTimeout,
		Timeout:      config.DefaultConnTimeout,
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("fileshell", flag.ContinueOnError)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Run the server")
	fs.BoolVarP(&cfg.UDP, "udp", "u", cfg.UDP, "Client: use the datagram transport")

	// ── addresses ────────────────────────────────────────────────
	fs.StringVar(&cfg.TCPAddr, "tcp", cfg.TCPAddr, "Stream address (bind or dial)")
	fs.StringVar(&cfg.UDPAddr, "udp-addr", cfg.UDPAddr, "Datagram address (bind or dial)")

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Root, "root", "r", cfg.Root, "Sandbox root directory (server)")

	var idleSec int
	fs.IntVar(&idleSec, "idle-timeout", 0, "Datagram session idle timeout in seconds")

	// ── client ───────────────────────────────────────────────────
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Dial / reply timeout in seconds")
	fs.IntVar(&cfg.ChunkRetries, "chunk-retries", cfg.ChunkRetries, "Sends per chunk before giving up")

	// ── output ───────────────────────────────────────────────────
	envVerbose := cfg.Verbose // CountVarP resets the target to zero
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("fileshell %s\n", version)
		return nil
	}

	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if idleSec > 0 {
		cfg.IdleTimeout = time.Duration(idleSec) * time.Second
	}
	if cfg.Verbose == 0 {
		cfg.Verbose = envVerbose
	}
	cfg.SweepInterval = config.DefaultSweepInterval

	// ── positional arguments: operation + operands ───────────────
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Op = rest[0]
		cfg.Args = rest[1:]
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Println("configuration OK")
		return nil
	}

	logger := util.NewLogger(cfg.Verbose)

	if cfg.Listen {
		srv, err := server.New(cfg, logger, metrics.New())
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	}
	return runClient(ctx, cfg, logger)
}

// ── client dispatch ──────────────────────────────────────────────────

func runClient(ctx context.Context, cfg *config.Config, logger *util.Logger) error {
	if cfg.UDP {
		return runUDPClient(ctx, cfg, logger)
	}
	return runTCPClient(ctx, cfg, logger)
}

func runTCPClient(ctx context.Context, cfg *config.Config, logger *util.Logger) error {
	c, err := client.DialTCP(ctx, cfg.TCPAddr, cfg.Timeout, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cfg.Op {
	case "ls":
		entries, err := c.List()
		if err != nil {
			return err
		}
		printListing(entries)
		return nil
	case "cd":
		return c.Cd(cfg.Args[0])
	case "up":
		return c.CdUp()
	case "mkdir":
		return c.Mkdir(cfg.Args[0])
	case "cp":
		n, err := c.Copy(cfg.Args[0], cfg.Args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes copied\n", n)
		return nil
	case "put":
		dir := ""
		if len(cfg.Args) > 1 {
			dir = cfg.Args[1]
		}
		n, err := c.Upload(cfg.Args[0], dir, "")
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes uploaded\n", n)
		return nil
	case "get":
		n, err := c.Download(cfg.Args[0], "")
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes downloaded\n", n)
		return nil
	default:
		return fmt.Errorf("unknown operation %q", cfg.Op)
	}
}

func runUDPClient(ctx context.Context, cfg *config.Config, logger *util.Logger) error {
	c, err := client.DialUDP(cfg.UDPAddr, cfg.ChunkTimeout, cfg.ChunkRetries, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cfg.Op {
	case "ls":
		entries, err := c.List()
		if err != nil {
			return err
		}
		printListing(entries)
		return nil
	case "cd":
		return c.Cd(cfg.Args[0])
	case "up":
		return c.CdUp()
	case "mkdir":
		return c.Mkdir(cfg.Args[0])
	case "cp":
		n, err := c.Copy(cfg.Args[0], cfg.Args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes copied\n", n)
		return nil
	case "put":
		dir := ""
		if len(cfg.Args) > 1 {
			dir = cfg.Args[1]
		}
		n, err := c.Upload(ctx, cfg.Args[0], dir, "")
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes uploaded\n", n)
		return nil
	case "get":
		n, err := c.Download(ctx, cfg.Args[0], "")
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes downloaded\n", n)
		return nil
	default:
		return fmt.Errorf("unknown operation %q", cfg.Op)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func printListing(entries []proto.DirEntry) {
	for _, e := range entries {
		if e.IsDir {
			fmt.Printf("%s/\n", e.Name)
			continue
		}
		fmt.Println(e.Name)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `fileshell – remote file operations over TCP and UDP v%s

One server, two transports: framed requests with raw streaming on TCP,
acknowledged 8 KiB chunks on UDP.

Usage:
  fileshell -l -r <dir> [options]             Serve <dir>
  fileshell [options] <op> [args...]          Run one client operation

Operations:
  ls                                          List the current directory
  cd <path>                                   Change directory
  up                                          Go one directory up
  mkdir <name>                                Create a directory
  cp <src> <dst>                              Server-side copy
  put <local> [remote-dir]                    Upload a file
  get <remote>                                Download a file

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  fileshell -l -r /srv/files                  Serve /srv/files
  fileshell ls                                List over TCP
  fileshell -u put ./report.pdf               Upload over UDP
  fileshell --tcp host:9090 get data.bin      Download from a remote host
`)
}
