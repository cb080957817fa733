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
	"bytes"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// EchoMany runs n Echo calls concurrently on a goroutine pool and checks that
// every reply equals msg. All failures are combined into the returned error.
func EchoMany(address string, msg []byte, n int, opt ...ClientOption) error {
	if n <= 0 {
		return errors.Errorf("invalid number of clients %d", n)
	}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	fail := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}
	pool, err := ants.NewPoolWithFunc(n, func(v any) {
		defer wg.Done()
		id, _ := v.(int)
		reply, err := Echo(address, msg, opt...)
		if err == nil && !bytes.Equal(reply, msg) {
			err = errors.Errorf("reply %q differs from message", reply)
		}
		if err != nil {
			fail(errors.Wrapf(err, "client %d", id))
		}
	})
	if err != nil {
		return errors.Wrap(err, "new client pool")
	}
	defer pool.Release()

	for i := 0; i < n; i++ {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			fail(errors.Wrapf(err, "submit client %d", i))
		}
	}
	wg.Wait()
	return errs
}
