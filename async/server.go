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

// Package async provides an echo server and client on top of the tnet event loop.
//
// The server writes back whatever bytes a connection delivers:
//
//	+------↓--------------↑--------+
//	| (read bytes)  (write bytes)  |  poller goroutine
//	+------|--------------↑--------+
//	+------↓--------------|--------+
//	|        echo handler          |  goroutine pool, or the poller
//	|                              |  itself with WithNonBlocking
//	+------------------------------+
package async

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"trpc.group/trpc-go/tnet"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

// Server is an event-loop echo server.
type Server struct {
	address string
	opts    serverOptions

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer creates an echo server for the given address, e.g. ":9990".
func NewServer(address string, opt ...ServerOption) *Server {
	s := &Server{
		address: address,
		ready:   make(chan struct{}),
	}
	for _, o := range opt {
		o.f(&s.opts)
	}
	return s
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, nil before Ready is closed.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Serve binds the listener and serves connections until ctx is done or the
// listener is closed. All connections and the listener are closed on return.
func (s *Server) Serve(ctx context.Context) error {
	if s.opts.pollers > 0 {
		if err := tnet.SetNumPollers(s.opts.pollers); err != nil {
			log.Warnf("echo server keeps %d pollers: %v", tnet.NumPollers(), err)
		}
	}
	ln, err := tnet.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.address)
	}
	svc, err := tnet.NewTCPService(ln, s.handle, s.serviceOptions()...)
	if err != nil {
		ln.Close()
		return errors.Wrap(err, "new tcp service")
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
	log.Infof("echo server listening on %s", ln.Addr())

	return svc.Serve(ctx)
}

func (s *Server) serviceOptions() []tnet.Option {
	opts := []tnet.Option{
		tnet.WithNonBlocking(s.opts.nonblocking),
		tnet.WithOnTCPOpened(onOpened),
		tnet.WithOnTCPClosed(onClosed),
	}
	if s.opts.idleTimeout > 0 {
		opts = append(opts, tnet.WithTCPIdleTimeout(s.opts.idleTimeout))
	}
	return opts
}

// handle writes the readable bytes back to the sender.
// A returned error makes tnet close the connection.
func (s *Server) handle(conn tnet.Conn) error {
	n := conn.Len()
	if n <= 0 {
		return nil
	}
	data, err := conn.ReadN(n)
	if err != nil {
		return handleError(conn, errors.Wrap(err, "read"))
	}
	metrics.Add(metrics.AsyncReadBytes, uint64(n))
	log.Infof("server received: %s", data)

	if _, err := conn.Write(data); err != nil {
		return handleError(conn, errors.Wrap(err, "write"))
	}
	metrics.Add(metrics.AsyncWriteBytes, uint64(n))

	if s.opts.closeAfterEcho {
		return conn.Close()
	}
	return nil
}

func handleError(conn tnet.Conn, err error) error {
	metrics.Add(metrics.AsyncHandlerFails, 1)
	log.Errorf("echo server connection %s: %v", conn.RemoteAddr(), err)
	return err
}

func onOpened(conn tnet.Conn) error {
	metrics.Add(metrics.AsyncConnsOpen, 1)
	log.Debugf("echo server connection opened: %s", conn.RemoteAddr())
	return nil
}

func onClosed(conn tnet.Conn) error {
	metrics.Add(metrics.AsyncConnsClose, 1)
	log.Debugf("echo server connection closed: %s", conn.RemoteAddr())
	return nil
}

// Run is Serve with cancellation of ctx treated as a clean stop.
func (s *Server) Run(ctx context.Context) error {
	err := s.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
