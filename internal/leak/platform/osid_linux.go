// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package platform

import "golang.org/x/sys/unix"

// OSThreadID returns the kernel task id of the calling thread.
//
// Only meaningful while the caller is locked to its OS thread; the
// thread coordinator locks the trampoline goroutine before asking.
func OSThreadID() int {
	return unix.Gettid()
}
