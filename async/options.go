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

package async

import "time"

const (
	defaultDialTimeout = time.Second
	defaultReadTimeout = 3 * time.Second
)

// ServerOption echo server option.
type ServerOption struct {
	f func(*serverOptions)
}

type serverOptions struct {
	closeAfterEcho bool
	nonblocking    bool
	pollers        int
	idleTimeout    time.Duration
}

// WithCloseAfterEcho sets whether the server closes a connection once the
// received bytes have been written back. Default value is false.
func WithCloseAfterEcho(closeAfterEcho bool) ServerOption {
	return ServerOption{func(op *serverOptions) {
		op.closeAfterEcho = closeAfterEcho
	}}
}

// WithNonBlocking sets whether the echo handler runs directly in the poller goroutine.
func WithNonBlocking(nonblock bool) ServerOption {
	return ServerOption{func(op *serverOptions) {
		op.nonblocking = nonblock
	}}
}

// WithPollers sets the number of tnet pollers. It can only grow the number of
// pollers, smaller values are ignored with a warning.
func WithPollers(n int) ServerOption {
	return ServerOption{func(op *serverOptions) {
		op.pollers = n
	}}
}

// WithIdleTimeout sets the idle timeout after which a silent connection is closed.
func WithIdleTimeout(d time.Duration) ServerOption {
	return ServerOption{func(op *serverOptions) {
		op.idleTimeout = d
	}}
}

// ClientOption echo client option.
type ClientOption struct {
	f func(*clientOptions)
}

type clientOptions struct {
	dialTimeout time.Duration
	readTimeout time.Duration
}

func (o *clientOptions) setDefault() {
	o.dialTimeout = defaultDialTimeout
	o.readTimeout = defaultReadTimeout
}

// WithDialTimeout sets the timeout of establishing the connection.
func WithDialTimeout(d time.Duration) ClientOption {
	return ClientOption{func(op *clientOptions) {
		op.dialTimeout = d
	}}
}

// WithReadTimeout sets how long the client waits for the echoed bytes.
func WithReadTimeout(d time.Duration) ClientOption {
	return ClientOption{func(op *clientOptions) {
		op.readTimeout = d
	}}
}
