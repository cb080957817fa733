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

import (
	"time"

	"github.com/pkg/errors"
	"trpc.group/trpc-go/tnet"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

// DefaultMessage is the payload sent by the echo-client command.
const DefaultMessage = "Netty rocks!"

// Echo connects to address, sends msg and waits for the same number of bytes to
// come back. The connection is closed before Echo returns.
func Echo(address string, msg []byte, opt ...ClientOption) ([]byte, error) {
	var opts clientOptions
	opts.setDefault()
	for _, o := range opt {
		o.f(&opts)
	}

	metrics.Add(metrics.ClientEchoCalls, 1)
	reply, err := echo(address, msg, opts)
	if err != nil {
		metrics.Add(metrics.ClientEchoFails, 1)
		return nil, err
	}
	log.Infof("client received: %s", reply)
	return reply, nil
}

func echo(address string, msg []byte, opts clientOptions) ([]byte, error) {
	if len(msg) == 0 {
		return nil, errors.New("empty message")
	}
	conn, err := tnet.DialTCP("tcp", address, opts.dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	defer conn.Close()
	// msg belongs to the caller.
	conn.SetSafeWrite(true)

	if _, err := conn.Write(msg); err != nil {
		return nil, errors.Wrap(err, "write")
	}
	if err := conn.SetReadDeadline(time.Now().Add(opts.readTimeout)); err != nil {
		return nil, errors.Wrap(err, "set read deadline")
	}
	reply, err := conn.ReadN(len(msg))
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return reply, nil
}
