// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import "github.com/kolkov/leakdetector/internal/leak/platform"

// registerFinalizer installs the coordinator's own destructor with the
// countdown at the platform iteration maximum. Each round it observes
// a value above the floor it re-registers itself one lower; on the
// floor it delivers the engine's finish notification instead, which
// is therefore observed only after every competing destructor round
// has run.
func (c *Coordinator) registerFinalizer(t *tcb) {
	t.countdown = platform.DestructorIterations

	var finalize func()
	finalize = func() {
		if t.countdown > 1 {
			t.countdown--
			t.pending = append(t.pending, finalize)
			return
		}
		c.eng.ThreadFinish()
		if c.logEvents {
			log.Debugf("thread %d finished", t.tid)
		}
	}
	t.pending = append(t.pending, finalize)
}

// runDestructors drains the pending destructor list in rounds, the
// way the platform's key-destructor loop does: destructors registered
// during a round run in the next one, and the loop stops after the
// iteration maximum even if registrations keep coming.
func (c *Coordinator) runDestructors(t *tcb) {
	for round := 0; round < platform.DestructorIterations; round++ {
		c.mu.Lock()
		ds := t.pending
		t.pending = nil
		c.mu.Unlock()
		if len(ds) == 0 {
			return
		}
		for _, fn := range ds {
			fn()
		}
	}
}
