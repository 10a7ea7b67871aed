// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package platform

// OSThreadID is the fallback for platforms without a cheap task-id
// syscall. Zero means "unknown"; the tracking engine treats it as an
// opaque value either way.
func OSThreadID() int {
	return 0
}
