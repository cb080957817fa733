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

// Package main runs the blocking line echo worker on one port.
//
// Try it with:
//
//	blocking-server 9990 &
//	printf 'hello\nDone\n' | nc 127.0.0.1 9990
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"trpc.group/trpc-go/tnet-echo/blocking"
	"trpc.group/trpc-go/tnet-echo/log"
	"trpc.group/trpc-go/tnet-echo/metrics"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <port>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	port, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatalf("invalid port %q: %v", os.Args[1], err)
	}
	w, err := blocking.New(port)
	if err != nil {
		log.Fatal(err)
	}
	w.Run()
	metrics.ShowMetrics()
}
