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

// Package reuseport creates stream listeners, optionally with SO_REUSEPORT.
package reuseport

import (
	"errors"
	"net"

	goreuseport "github.com/kavu/go_reuseport"
)

var errUnsupportedProtocol = errors.New("only tcp, tcp4, tcp6 are supported")

// Listen announces on the local network address.
// With reuse set, the socket is created with SO_REUSEADDR and SO_REUSEPORT so that
// several processes may bind the same port.
func Listen(network, address string, reuse bool) (net.Listener, error) {
	if err := validate(network); err != nil {
		return nil, err
	}
	if reuse {
		return goreuseport.Listen(network, address)
	}
	return net.Listen(network, address)
}

func validate(network string) error {
	switch network {
	case "tcp", "tcp4", "tcp6":
		return nil
	default:
		return errUnsupportedProtocol
	}
}
