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

package blocking_test

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/tnet-echo/blocking"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

const waitTimeout = 5 * time.Second

func TestNewInvalidPort(t *testing.T) {
	for _, port := range []int{-1, 0, 65536} {
		_, err := blocking.New(port)
		assert.NotNil(t, err, "port %d", port)
	}
	w, err := blocking.New(65535, blocking.WithHost("127.0.0.1"))
	require.Nil(t, err)
	assert.Equal(t, "127.0.0.1:65535", w.Address())
}

func TestResponse(t *testing.T) {
	assert.Equal(t, "Get Request : hello", blocking.Response("hello"))
	assert.Equal(t, "Get Request : ", blocking.Response(""))

	w, err := blocking.New(9000, blocking.WithResponsePrefix("echo: "))
	require.Nil(t, err)
	assert.Equal(t, "echo: hello", w.Response("hello"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AwaitingConnection", blocking.AwaitingConnection.String())
	assert.Equal(t, "Processing", blocking.Processing.String())
	assert.Equal(t, "Terminated", blocking.Terminated.String())
	assert.Equal(t, "State(7)", blocking.State(7).String())
}

func TestServeRespondsUntilSentinel(t *testing.T) {
	w, ln, done := startWorker(t)
	assert.Equal(t, blocking.AwaitingConnection, w.State())

	c := dial(t, ln)
	defer c.Close()
	r := bufio.NewReader(c)

	write(t, c, "hello\n")
	assert.Equal(t, "Get Request : hello\n", readLine(t, c, r))
	assert.Equal(t, blocking.Processing, w.State())

	write(t, c, "Done\nignored\n")
	assert.Nil(t, waitDone(t, done))
	assert.Equal(t, blocking.Terminated, w.State())

	// Nothing is answered after the sentinel.
	c.SetReadDeadline(time.Now().Add(waitTimeout))
	_, err := r.ReadString('\n')
	assert.NotNil(t, err)
}

func TestServeEmptyAndCRLFLines(t *testing.T) {
	_, ln, done := startWorker(t)
	c := dial(t, ln)
	defer c.Close()
	r := bufio.NewReader(c)

	write(t, c, "\n")
	assert.Equal(t, "Get Request : \n", readLine(t, c, r))
	write(t, c, "hi\r\n")
	assert.Equal(t, "Get Request : hi\n", readLine(t, c, r))
	// "Done" with a CRLF terminator still ends the session.
	write(t, c, "Done\r\n")
	assert.Nil(t, waitDone(t, done))
}

func TestServeEndOfStreamWithoutData(t *testing.T) {
	eofs := metrics.Get(metrics.BlockingEOFs)
	w, ln, done := startWorker(t)

	c := dial(t, ln)
	require.Nil(t, c.Close())

	assert.Nil(t, waitDone(t, done))
	assert.Equal(t, blocking.Terminated, w.State())
	assert.Equal(t, eofs+1, metrics.Get(metrics.BlockingEOFs))
}

func TestServeUnterminatedLastLine(t *testing.T) {
	_, ln, done := startWorker(t)
	c := dial(t, ln)
	defer c.Close()
	r := bufio.NewReader(c)

	write(t, c, "tail")
	require.Nil(t, c.(*net.TCPConn).CloseWrite())
	assert.Equal(t, "Get Request : tail\n", readLine(t, c, r))
	assert.Nil(t, waitDone(t, done))
}

func TestServeReleasesListener(t *testing.T) {
	_, ln, done := startWorker(t)
	c := dial(t, ln)
	write(t, c, "Done\n")
	assert.Nil(t, waitDone(t, done))
	c.Close()

	_, err := ln.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestServeSingleConnection(t *testing.T) {
	_, ln, done := startWorker(t)
	c := dial(t, ln)
	write(t, c, "Done\n")
	assert.Nil(t, waitDone(t, done))
	c.Close()

	_, err := net.DialTimeout(ln.Addr().Network(), ln.Addr().String(), time.Second)
	assert.NotNil(t, err)
}

func TestServeMultipleSessions(t *testing.T) {
	w, ln, done := startWorker(t, blocking.WithSessions(2))

	first := dial(t, ln)
	r := bufio.NewReader(first)
	write(t, first, "one\n")
	assert.Equal(t, "Get Request : one\n", readLine(t, first, r))
	first.Close()

	require.Eventually(t, func() bool {
		return w.State() == blocking.AwaitingConnection
	}, waitTimeout, time.Millisecond)

	second := dial(t, ln)
	defer second.Close()
	r = bufio.NewReader(second)
	write(t, second, "two\n")
	assert.Equal(t, "Get Request : two\n", readLine(t, second, r))
	write(t, second, "Done\n")
	assert.Nil(t, waitDone(t, done))
}

func TestServeCustomSentinel(t *testing.T) {
	_, ln, done := startWorker(t, blocking.WithSentinel("bye"))
	c := dial(t, ln)
	defer c.Close()
	r := bufio.NewReader(c)

	write(t, c, "Done\n")
	assert.Equal(t, "Get Request : Done\n", readLine(t, c, r))
	write(t, c, "bye\n")
	assert.Nil(t, waitDone(t, done))
}

func TestServeClosedListener(t *testing.T) {
	w, err := blocking.New(9000)
	require.Nil(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	ln.Close()

	assert.NotNil(t, w.Serve(ln))
	assert.Equal(t, blocking.Terminated, w.State())
}

func TestRun(t *testing.T) {
	port := freePort(t)
	w, err := blocking.New(port, blocking.WithHost("127.0.0.1"))
	require.Nil(t, err)

	finished := make(chan struct{})
	go func() {
		w.Run()
		close(finished)
	}()

	var c net.Conn
	require.Eventually(t, func() bool {
		c, err = net.Dial("tcp", w.Address())
		return err == nil
	}, waitTimeout, 5*time.Millisecond)
	defer c.Close()
	r := bufio.NewReader(c)

	write(t, c, "hello\n")
	assert.Equal(t, "Get Request : hello\n", readLine(t, c, r))
	write(t, c, "Done\n")

	select {
	case <-finished:
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, blocking.Terminated, w.State())
}

func TestRunLogsBindFailure(t *testing.T) {
	old := log.Default
	defer func() { log.Default = old }()
	var buf bytes.Buffer
	log.Default = log.New(&buf)

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer occupied.Close()

	w, err := blocking.New(occupied.Addr().(*net.TCPAddr).Port, blocking.WithHost("127.0.0.1"))
	require.Nil(t, err)
	w.Run()
	assert.Equal(t, blocking.Terminated, w.State())
	assert.Contains(t, buf.String(), "blocking worker listen on")
}

func TestRunReusePort(t *testing.T) {
	port := freePort(t)
	w, err := blocking.New(port, blocking.WithHost("127.0.0.1"), blocking.WithReusePort(true))
	require.Nil(t, err)

	finished := make(chan struct{})
	go func() {
		w.Run()
		close(finished)
	}()

	var c net.Conn
	require.Eventually(t, func() bool {
		c, err = net.Dial("tcp", w.Address())
		return err == nil
	}, waitTimeout, 5*time.Millisecond)
	c.Close()

	select {
	case <-finished:
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
}

func startWorker(t *testing.T, opts ...blocking.Option) (*blocking.Worker, net.Listener, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	w, err := blocking.New(ln.Addr().(*net.TCPAddr).Port, opts...)
	require.Nil(t, err)
	done := make(chan error, 1)
	go func() {
		done <- w.Serve(ln)
	}()
	return w, ln, done
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func dial(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	c, err := net.DialTimeout(ln.Addr().Network(), ln.Addr().String(), time.Second)
	require.Nil(t, err)
	return c
}

func write(t *testing.T, c net.Conn, s string) {
	t.Helper()
	_, err := c.Write([]byte(s))
	require.Nil(t, err)
}

func readLine(t *testing.T, c net.Conn, r *bufio.Reader) string {
	t.Helper()
	require.Nil(t, c.SetReadDeadline(time.Now().Add(waitTimeout)))
	line, err := r.ReadString('\n')
	require.Nil(t, err)
	return line
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("worker did not stop")
		return nil
	}
}
