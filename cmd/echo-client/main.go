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

// Package main sends a message to the echo server and prints the reply.
package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"trpc.group/trpc-go/tnet-echo/async"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

func main() {
	if len(os.Args) != 3 && len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <host> <port> [clients]\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	address := net.JoinHostPort(os.Args[1], os.Args[2])
	clients := 1
	if len(os.Args) == 4 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil {
			log.Fatalf("invalid number of clients %q: %v", os.Args[3], err)
		}
		clients = n
	}

	msg := []byte(async.DefaultMessage)
	if clients == 1 {
		if _, err := async.Echo(address, msg); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := async.EchoMany(address, msg, clients); err != nil {
		log.Fatal(err)
	}
	metrics.ShowMetrics()
}
