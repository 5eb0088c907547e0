//go:build debug

// Package debug provides assertion helpers that compile to no-ops unless
// built with -tags debug.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
	"sync"
)

func ON() bool { return true }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprint("assertion failed: ", fmt.Sprint(args...)))
	}
}

func AssertFunc(f func() bool, args ...any) { Assert(f(), args...) }

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// AssertMutexLocked is best-effort: sync.Mutex exposes no locked-state API,
// so this only documents intent at call sites.
func AssertMutexLocked(_ *sync.Mutex)     {}
func AssertRWMutexLocked(_ *sync.RWMutex) {}
