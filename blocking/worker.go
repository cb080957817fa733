//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package blocking provides a line echo worker built on blocking sockets.
//
// The worker accepts a single connection, reads newline delimited requests
// and answers each one with a prefixed copy until the client sends the
// sentinel line or closes the connection.
//
//	+---------------------+
//	| AwaitingConnection  |  accept blocks
//	+----------|----------+
//	+----------↓----------+
//	|     Processing      |  read line -> write response, one at a time
//	+----------|----------+
//	+----------↓----------+
//	|     Terminated      |  sentinel, end of stream or I/O error
//	+---------------------+
package blocking

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"trpc.group/trpc-go/tnet-echo/internal/reuseport"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

// State is the lifecycle state of a Worker.
type State int32

// All worker states.
const (
	AwaitingConnection State = iota
	Processing
	Terminated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case AwaitingConnection:
		return "AwaitingConnection"
	case Processing:
		return "Processing"
	case Terminated:
		return "Terminated"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Worker runs the accept, read loop, respond cycle on one port.
type Worker struct {
	port  int
	opts  options
	state atomic.Int32
}

// New creates a worker for the given port. The port must be in [1, 65535].
func New(port int, opt ...Option) (*Worker, error) {
	if port < 1 || port > 65535 {
		return nil, errors.Errorf("invalid port %d, must be in [1, 65535]", port)
	}
	w := &Worker{port: port}
	w.opts.setDefault()
	for _, o := range opt {
		o.f(&w.opts)
	}
	return w, nil
}

// Response returns the response to request using DefaultResponsePrefix.
func Response(request string) string {
	return DefaultResponsePrefix + request
}

// Response returns the response to request using the configured prefix.
func (w *Worker) Response(request string) string {
	return w.opts.prefix + request
}

// Address returns the address the worker binds to in Run.
func (w *Worker) Address() string {
	return net.JoinHostPort(w.opts.host, strconv.Itoa(w.port))
}

// State returns the current state, it is safe to call from any goroutine.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Run binds the listener and serves connections on it.
// Errors are logged rather than returned, and the listener together with the
// accepted connection are always closed before Run returns.
func (w *Worker) Run() {
	ln, err := reuseport.Listen(w.opts.network, w.Address(), w.opts.reusePort)
	if err != nil {
		w.setState(Terminated)
		metrics.Add(metrics.BlockingIOErrors, 1)
		log.Errorf("blocking worker listen on %s: %v", w.Address(), err)
		return
	}
	metrics.Add(metrics.BlockingBinds, 1)
	log.Infof("blocking worker listening on %s", ln.Addr())
	if err := w.Serve(ln); err != nil {
		log.Errorf("blocking worker on %s stopped: %v", ln.Addr(), err)
		return
	}
	log.Infof("blocking worker on %s finished", ln.Addr())
}

// Serve accepts connections on ln and processes them one at a time.
// Serve takes ownership of ln and closes it before returning.
// End of stream and the sentinel line end a session without error.
func (w *Worker) Serve(ln net.Listener) (err error) {
	defer func() {
		w.setState(Terminated)
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, errors.Wrap(cerr, "close listener"))
		}
	}()
	for n := 0; w.opts.sessions <= 0 || n < w.opts.sessions; n++ {
		if serr := w.serveOne(ln); serr != nil {
			metrics.Add(metrics.BlockingIOErrors, 1)
			return serr
		}
	}
	return nil
}

func (w *Worker) serveOne(ln net.Listener) (err error) {
	w.setState(AwaitingConnection)
	conn, err := ln.Accept()
	if err != nil {
		return errors.Wrap(err, "accept")
	}
	metrics.Add(metrics.BlockingAccepts, 1)
	w.setState(Processing)
	log.Debugf("blocking worker accepted %s", conn.RemoteAddr())
	defer func() {
		err = multierr.Append(err, errors.Wrap(conn.Close(), "close connection"))
		metrics.Add(metrics.BlockingConnsClose, 1)
	}()
	return w.process(conn)
}

// process runs the request loop on rw until the sentinel or end of stream.
func (w *Worker) process(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	bw := bufio.NewWriter(rw)
	for {
		request, err := readLine(r)
		if errors.Is(err, io.EOF) {
			metrics.Add(metrics.BlockingEOFs, 1)
			log.Debug("blocking worker: end of stream")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read request")
		}
		metrics.Add(metrics.BlockingRequestLines, 1)
		if request == w.opts.sentinel {
			metrics.Add(metrics.BlockingSentinels, 1)
			log.Debugf("blocking worker: received sentinel %q", request)
			return nil
		}
		if _, err := bw.WriteString(w.Response(request) + "\n"); err != nil {
			return errors.Wrap(err, "write response")
		}
		if err := bw.Flush(); err != nil {
			return errors.Wrap(err, "flush response")
		}
		metrics.Add(metrics.BlockingResponseLines, 1)
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// readLine reads one line without its "\n" or "\r\n" terminator.
// An unterminated last line is returned with a nil error;
// io.EOF is returned only when nothing is left to read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
