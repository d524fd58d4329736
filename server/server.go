// Package server implements the kvs network server: a TCP listener whose
// accepted connections are dispatched onto a worker pool, each served by
// its own clone of the storage engine.
package server

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/termkv/termkv"
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/protocol"
	"github.com/termkv/termkv/workerpool"
)

// pollInterval bounds how long a shutdown request can go unnoticed by
// the accept loop.
const pollInterval = 10 * time.Millisecond

// keyNotFoundMsg is the wire-level rendering of ErrKeyNotFound, fixed by
// the client contract.
const keyNotFoundMsg = "Key not found"

// Server accepts kvs protocol connections and serves them against an
// engine. It is parameterized over both the engine variant and the pool
// variant; both are chosen once at construction.
type Server struct {
	engine termkv.KvsEngine
	pool   workerpool.Pool
	logger logging.Logger

	ln       *net.TCPListener
	shutdown atomic.Bool
	done     chan struct{}
}

// New returns a Server over engine and pool. If logger is nil, a
// WARN-level logger writing to stderr is used (logging.OrDefault).
func New(engine termkv.KvsEngine, pool workerpool.Pool, logger logging.Logger) *Server {
	return &Server{
		engine: engine,
		pool:   pool,
		logger: logging.OrDefault(logger),
		done:   make(chan struct{}),
	}
}

// Listen binds the server to addr. It must be called exactly once,
// before Serve.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln.(*net.TCPListener)
	return nil
}

// Addr reports the bound listen address, useful when Listen was given
// port 0.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop on the calling goroutine until Shutdown.
// Each accepted connection becomes one pool task that serves requests
// until the peer closes or a protocol error occurs. In-flight tasks are
// not interrupted by Shutdown.
func (s *Server) Serve() error {
	defer close(s.done)
	defer func() { _ = s.ln.Close() }()

	for {
		if s.shutdown.Load() {
			return nil
		}
		// A short accept deadline doubles as the shutdown poll: on
		// timeout the loop re-checks the flag and re-arms.
		if err := s.ln.SetDeadline(time.Now().Add(pollInterval)); err != nil {
			return err
		}
		conn, err := s.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if s.shutdown.Load() {
				return nil
			}
			s.logger.Errorf("%saccept: %v", logging.NSServer, err)
			continue
		}

		eng := s.engine.Clone()
		s.pool.Submit(func() {
			s.serve(conn, eng)
		})
	}
}

// Shutdown stops accepting new connections and waits for the accept loop
// to exit. In-flight connection tasks complete normally.
func (s *Server) Shutdown() {
	s.shutdown.Store(true)
	<-s.done
}

// serve handles one connection: a stream of requests answered in order,
// each dispatched against this connection's engine clone.
func (s *Server) serve(conn net.Conn, eng termkv.KvsEngine) {
	defer func() { _ = conn.Close() }()
	defer func() { _ = eng.Close() }()

	peer := conn.RemoteAddr()
	codec := protocol.NewCodec(conn)
	for {
		req, err := codec.ReadRequest()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			s.logger.Errorf("%sread request from %s: %v", logging.NSServer, peer, err)
			return
		}
		s.logger.Debugf("%srequest from %s: %s %q", logging.NSServer, peer, req.Op, req.Key)

		resp := dispatch(eng, req)
		if err := codec.WriteResponse(resp); err != nil {
			s.logger.Errorf("%swrite response to %s: %v", logging.NSServer, peer, err)
			return
		}
	}
}

func dispatch(eng termkv.KvsEngine, req protocol.Request) protocol.Response {
	switch req.Op {
	case protocol.OpGet:
		value, found, err := eng.Get(req.Key)
		if err != nil {
			return protocol.ErrResponse(err.Error())
		}
		if !found {
			return protocol.ValueResponse(nil)
		}
		return protocol.ValueResponse(&value)
	case protocol.OpSet:
		if err := eng.Set(req.Key, req.Value); err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse()
	case protocol.OpRemove:
		err := eng.Remove(req.Key)
		if errors.Is(err, termkv.ErrKeyNotFound) {
			return protocol.ErrResponse(keyNotFoundMsg)
		}
		if err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse()
	default:
		return protocol.ErrResponse("unknown op " + req.Op)
	}
}
