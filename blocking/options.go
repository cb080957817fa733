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

package blocking

const (
	// DefaultSentinel is the request line that ends a session.
	DefaultSentinel = "Done"
	// DefaultResponsePrefix is prepended to every request line to form the response.
	DefaultResponsePrefix = "Get Request : "

	defaultNetwork  = "tcp"
	defaultSessions = 1
)

// Option worker option.
type Option struct {
	f func(*options)
}

type options struct {
	network   string
	host      string
	sentinel  string
	prefix    string
	sessions  int
	reusePort bool
}

func (o *options) setDefault() {
	o.network = defaultNetwork
	o.sentinel = DefaultSentinel
	o.prefix = DefaultResponsePrefix
	o.sessions = defaultSessions
}

// WithNetwork sets the network of the listener, one of "tcp", "tcp4", "tcp6".
func WithNetwork(network string) Option {
	return Option{func(op *options) {
		op.network = network
	}}
}

// WithHost sets the host the listener binds to.
// Empty host (the default) listens on all interfaces.
func WithHost(host string) Option {
	return Option{func(op *options) {
		op.host = host
	}}
}

// WithSentinel sets the request line that ends a session.
func WithSentinel(sentinel string) Option {
	return Option{func(op *options) {
		op.sentinel = sentinel
	}}
}

// WithResponsePrefix sets the prefix of every response line.
func WithResponsePrefix(prefix string) Option {
	return Option{func(op *options) {
		op.prefix = prefix
	}}
}

// WithSessions sets how many connections are served, one after another, before
// the worker returns. Default is 1. If n <= 0 the worker keeps accepting until
// the listener fails.
func WithSessions(n int) Option {
	return Option{func(op *options) {
		op.sessions = n
	}}
}

// WithReusePort sets whether the listener is created with SO_REUSEPORT.
// Default value is false.
func WithReusePort(reuse bool) Option {
	return Option{func(op *options) {
		op.reusePort = reuse
	}}
}
