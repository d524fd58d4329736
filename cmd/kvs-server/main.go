// Command kvs-server runs the networked key/value store over the current
// working directory.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/termkv/termkv"
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/server"
	"github.com/termkv/termkv/workerpool"
)

const defaultAddr = "127.0.0.1:4000"

func main() {
	flags := flag.NewFlagSet("kvs-server", flag.ExitOnError)
	addr := flags.String("addr", defaultAddr, "listen address (IP:PORT)")
	engineFlag := flags.String("engine", "", "storage engine variant (kvs|sled); defaults to the variant recorded in the data directory, else kvs")
	_ = flags.Parse(os.Args[1:])

	logger := logging.NewDefaultLogger(logging.LevelInfo)
	if err := run(*addr, *engineFlag, logger); err != nil {
		logger.Errorf("%s%v", logging.NSServer, err)
		os.Exit(1)
	}
}

func run(addr, engineFlag string, logger logging.Logger) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	variant, err := resolveVariant(dir, engineFlag)
	if err != nil {
		return err
	}
	if variant != "kvs" {
		return fmt.Errorf("engine %q is not built into this binary", variant)
	}

	opts := termkv.DefaultOptions()
	opts.Logger = logger
	opts.Variant = variant
	eng, err := termkv.Open(dir, opts)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	pool := workerpool.NewStealing(runtime.GOMAXPROCS(0))
	srv := server.New(eng, pool, logger)
	if err := srv.Listen(addr); err != nil {
		return err
	}

	logger.Infof("%skvs-server listening on %s, engine %s, dir %s", logging.NSServer, srv.Addr(), variant, dir)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("%sshutting down", logging.NSServer)
		srv.Shutdown()
	}()

	return srv.Serve()
}

// resolveVariant applies the startup precedence: an explicit flag must
// match any recorded variant; with no flag, the recorded variant wins,
// else kvs. The authoritative mismatch check (and first-run recording)
// happens again inside Open, before any log file is touched.
func resolveVariant(dir, engineFlag string) (string, error) {
	recorded := ""
	if raw, err := os.ReadFile(filepath.Join(dir, "engine")); err == nil {
		recorded = strings.TrimSpace(string(raw))
	}

	switch {
	case engineFlag == "" && recorded == "":
		return "kvs", nil
	case engineFlag == "":
		return recorded, nil
	case recorded == "" || engineFlag == recorded:
		return engineFlag, nil
	default:
		return "", fmt.Errorf("%w: directory was initialized as %q, requested %q", termkv.ErrEngineMismatch, recorded, engineFlag)
	}
}
