// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"errors"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/tliron/commonlog"

	"github.com/kolkov/leakdetector/internal/leak/engine"
	"github.com/kolkov/leakdetector/internal/leak/guard"
	"github.com/kolkov/leakdetector/internal/leak/platform"
)

var log = commonlog.GetLogger("leakdetector.thread")

var (
	// ErrNotTracked is returned when a per-thread operation runs on a
	// thread the coordinator did not create.
	ErrNotTracked = errors.New("calling thread is not coordinator-created")

	// ErrDetached is returned when joining a detached thread.
	ErrDetached = errors.New("thread is detached")
)

// Callback is the user entry routine of a created thread.
type Callback func(arg any) any

// Attr carries caller-supplied thread attributes. A nil *Attr means
// defaults.
type Attr struct {
	// StackSize is a request only; it is floored to the runtime's
	// minimum so the tracking machinery always fits.
	StackSize int

	// Detached threads cannot be joined; their identity is reported
	// to the engine as detached at creation.
	Detached bool
}

// startRequest is the creation handshake, heap-owned by the created
// thread.
type startRequest struct {
	callback Callback
	arg      any

	// tid is the identity slot: 0 until the creator publishes the
	// engine-assigned identity. Sequentially consistent atomics; see
	// the package comment for the ordering discipline.
	tid atomic.Int32
}

// Thread is the creator-side handle of a created thread.
type Thread struct {
	detached bool
	done     chan struct{}
	result   any
}

// tcb is the per-thread control block, the thread-local state of one
// coordinator-created thread.
type tcb struct {
	tid       int32
	countdown int      // finalization countdown, fires ThreadFinish on 1
	pending   []func() // destructors for the next run round
	exited    bool     // thread left through Exit; skip the destructor runner
	result    any
}

// Coordinator intercepts thread creation and termination for one
// process context.
type Coordinator struct {
	eng   engine.Engine
	guard *guard.Guard

	logEvents bool

	mu  sync.Mutex
	tls map[int64]*tcb // goroutine id → control block

	// spawn invokes the platform's real thread-creation primitive.
	// Replaced by tests to model creation failure.
	spawn func(fn func()) error

	// Die terminates the process after a fatal diagnostic.
	Die func()
}

// New wires a coordinator.
func New(eng engine.Engine, g *guard.Guard, logEvents bool) *Coordinator {
	return &Coordinator{
		eng:       eng,
		guard:     g,
		logEvents: logEvents,
		tls:       make(map[int64]*tcb),
		spawn: func(fn func()) error {
			go fn()
			return nil
		},
		Die: func() { os.Exit(1) },
	}
}

// SetSpawn replaces the create primitive. Test hook.
func (c *Coordinator) SetSpawn(spawn func(fn func()) error) { c.spawn = spawn }

// Create intercepts thread creation.
//
// The user callback is wrapped in a handshake and the real create
// primitive receives the trampoline instead. After the primitive
// returns, the creator registers the new identity with the engine and
// publishes it into the slot the trampoline is spinning on. The create
// runs under the reentrancy guard: bookkeeping the platform allocates
// for the new thread (stack, TLS) must not show up as leaks.
func (c *Coordinator) Create(attr *Attr, fn Callback, arg any) (*Thread, error) {
	var a Attr
	if attr != nil {
		a = *attr
	}
	if a.StackSize < platform.MinThreadStackSize {
		a.StackSize = platform.MinThreadStackSize
	}

	req := &startRequest{callback: fn, arg: arg}
	th := &Thread{detached: a.Detached, done: make(chan struct{})}
	creator := c.CurrentThreadID()

	var err error
	func() {
		defer c.guard.Disable()()
		err = c.spawn(func() { c.trampoline(req, th) })
	}()
	if err != nil {
		return nil, err
	}

	tid := c.eng.ThreadCreate(creator, a.Detached)
	if tid == engine.MainThreadID {
		log.Critical("engine assigned the main-thread identity to a created thread")
		c.Die()
	}
	if c.logEvents {
		log.Debugf("thread %d created by %d (detached=%v)", tid, creator, a.Detached)
	}
	req.tid.Store(tid)
	return th, nil
}

// trampoline runs on the new thread. It must not execute any user
// code before the identity slot is observed non-zero.
func (c *Coordinator) trampoline(req *startRequest, th *Thread) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t := &tcb{}
	gid := goid.Get()
	c.mu.Lock()
	c.tls[gid] = t
	c.mu.Unlock()

	// Register the finalization countdown before anything can
	// terminate the thread.
	c.registerFinalizer(t)

	var tid int32
	for tid = req.tid.Load(); tid == 0; tid = req.tid.Load() {
		runtime.Gosched()
	}
	c.eng.ThreadStart(tid, platform.OSThreadID())
	t.tid = tid
	if c.logEvents {
		log.Debugf("thread %d started", tid)
	}

	defer func() {
		if !t.exited {
			c.runDestructors(t)
		}
		th.result = t.result
		c.mu.Lock()
		delete(c.tls, gid)
		c.mu.Unlock()
		close(th.done)
	}()
	t.result = req.callback(req.arg)
}

// Join intercepts thread join: a transparent pass-through to the
// platform's wait, forwarding the callback's result.
func (c *Coordinator) Join(th *Thread) (any, error) {
	if th.detached {
		return nil, ErrDetached
	}
	<-th.done
	return th.result, nil
}

// Exit intercepts the direct thread-exit primitive, which bypasses
// the destructor mechanism: the finish notification is delivered
// immediately, then the real exit primitive runs.
func (c *Coordinator) Exit(result any) {
	gid := goid.Get()
	c.mu.Lock()
	t := c.tls[gid]
	c.mu.Unlock()
	if t != nil {
		t.exited = true
		t.result = result
		c.eng.ThreadFinish()
		if c.logEvents {
			log.Debugf("thread %d exited directly", t.tid)
		}
	}
	runtime.Goexit()
}

// RegisterDestructor adds a per-thread destructor for the calling
// thread. Destructors registered during a destructor round run in the
// next round, up to the platform iteration maximum.
func (c *Coordinator) RegisterDestructor(fn func()) error {
	gid := goid.Get()
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.tls[gid]
	if t == nil {
		return ErrNotTracked
	}
	t.pending = append(t.pending, fn)
	return nil
}

// CurrentThreadID resolves the calling thread's tracked identity;
// MainThreadID for threads the coordinator did not create.
func (c *Coordinator) CurrentThreadID() int32 {
	gid := goid.Get()
	c.mu.Lock()
	t := c.tls[gid]
	c.mu.Unlock()
	if t == nil {
		return engine.MainThreadID
	}
	return t.tid
}

// Tracked returns the number of live coordinator-created threads.
// Test helper.
func (c *Coordinator) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tls)
}
