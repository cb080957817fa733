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

// Package metrics keeps process wide counters of the echo programs,
// such as how many lines the blocking worker answered or how many bytes
// the event-loop server echoed.
package metrics

import (
	"time"

	"go.uber.org/atomic"
	"trpc.group/trpc-go/tnet-echo/log"
)

// All metrics definitions.
const (
	// The following constants are blocking worker metrics.

	BlockingBinds = iota
	BlockingAccepts
	BlockingConnsClose
	BlockingRequestLines
	BlockingResponseLines
	BlockingSentinels
	BlockingEOFs
	BlockingIOErrors

	// The following constants are event-loop server metrics.

	AsyncConnsOpen
	AsyncConnsClose
	AsyncReadBytes
	AsyncWriteBytes
	AsyncHandlerFails

	// The following constants are event-loop client metrics.

	ClientEchoCalls
	ClientEchoFails

	// Keep it last.

	Max
)

var (
	metrics [Max]atomic.Uint64
)

// Add metrics counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	metrics[name].Add(delta)
}

// Get one metric counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return metrics[name].Load()
}

// GetAll get all metrics.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metrics {
		m[i] = metrics[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod shows metric info of duration d from now on.
// It will block d duration, and then prints metrics info.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	new := GetAll()
	var m [Max]uint64
	for i := range metrics {
		m[i] = new[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics shows metric info in console.
func ShowMetrics() {
	showAll(GetAll())
}

func showAll(m [Max]uint64) {
	log.Debug("######### echo metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	showBlockingMetrics(m)
	showAsyncMetrics(m)
	showClientMetrics(m)
}

func showBlockingMetrics(m [Max]uint64) {
	log.Debugf("%-52s: %d", "# BLOCKING - number of listeners bound", m[BlockingBinds])
	log.Debugf("%-52s: %d", "# BLOCKING - number of connections accepted", m[BlockingAccepts])
	log.Debugf("%-52s: %d", "# BLOCKING - number of connections closed", m[BlockingConnsClose])
	log.Debugf("%-52s: %d", "# BLOCKING - number of request lines read", m[BlockingRequestLines])
	log.Debugf("%-52s: %d", "# BLOCKING - number of response lines written", m[BlockingResponseLines])
	log.Debugf("%-52s: %d", "# BLOCKING - sessions ended by sentinel", m[BlockingSentinels])
	log.Debugf("%-52s: %d", "# BLOCKING - sessions ended by end of stream", m[BlockingEOFs])
	log.Debugf("%-52s: %d", "# BLOCKING - number of I/O errors", m[BlockingIOErrors])
}

func showAsyncMetrics(m [Max]uint64) {
	log.Debugf("%-52s: %d", "# ASYNC - number of connections opened", m[AsyncConnsOpen])
	log.Debugf("%-52s: %d", "# ASYNC - number of connections closed", m[AsyncConnsClose])
	log.Debugf("%-52s: %dB", "# ASYNC - bytes received", m[AsyncReadBytes])
	log.Debugf("%-52s: %dB", "# ASYNC - bytes echoed", m[AsyncWriteBytes])
	log.Debugf("%-52s: %d", "# ASYNC - number of failed handler calls", m[AsyncHandlerFails])
}

func showClientMetrics(m [Max]uint64) {
	log.Debugf("%-52s: %d", "# CLIENT - number of echo calls", m[ClientEchoCalls])
	log.Debugf("%-52s: %d", "# CLIENT - number of failed echo calls", m[ClientEchoFails])
	if m[ClientEchoCalls] > 0 {
		log.Debugf("%-52s: %.2f%%", "# CLIENT - failure rate",
			float64(m[ClientEchoFails])*100/float64(m[ClientEchoCalls]))
	}
}
