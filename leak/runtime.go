// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leak

import (
	"os"
	"sync"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple" // log backend

	"github.com/kolkov/leakdetector/internal/leak/bootstrap"
	"github.com/kolkov/leakdetector/internal/leak/depot"
	"github.com/kolkov/leakdetector/internal/leak/dispatch"
	"github.com/kolkov/leakdetector/internal/leak/engine"
	"github.com/kolkov/leakdetector/internal/leak/exitadapt"
	"github.com/kolkov/leakdetector/internal/leak/guard"
	"github.com/kolkov/leakdetector/internal/leak/heap"
	"github.com/kolkov/leakdetector/internal/leak/interpose"
	"github.com/kolkov/leakdetector/internal/leak/options"
	"github.com/kolkov/leakdetector/internal/leak/platform"
	"github.com/kolkov/leakdetector/internal/leak/thread"
)

var log = commonlog.GetLogger("leakdetector")

// Runtime is the process-wide context object: every component is
// constructed once, here, and holds references instead of reaching for
// ambient singletons. It is created by Init (or NewRuntime in tests)
// and never torn down before process exit.
type Runtime struct {
	Options   options.Options
	Engine    engine.Engine
	Depot     *depot.Depot
	Guard     *guard.Guard
	Heap      *heap.Heap
	Bootstrap *bootstrap.Arena
	Dispatch  *dispatch.Dispatcher
	Threads   *thread.Coordinator
	ExitAdapt *exitadapt.Adapter
	Registry  *interpose.Registry

	// Tracker is the reference engine when no custom one was
	// supplied; nil otherwise.
	Tracker *engine.Tracker
}

// NewRuntime wires a complete runtime around eng. A nil eng gets the
// reference tracker. Exposed for tests and embedders; ordinary
// programs use Init.
func NewRuntime(eng engine.Engine, opts options.Options, caps platform.Capabilities) *Runtime {
	r := &Runtime{Options: opts}

	r.Depot = depot.New(opts.MaxStackDepth)
	r.Guard = guard.New()
	if eng == nil {
		r.Tracker = engine.NewTracker(r.Depot)
		eng = r.Tracker
	}
	r.Engine = eng
	r.Heap = heap.New()
	r.Bootstrap = bootstrap.New(eng, opts.BootstrapArenaSize)
	r.Dispatch = dispatch.New(eng, r.Bootstrap, r.Heap, r.Guard, r.Depot)
	r.Threads = thread.New(eng, r.Guard, opts.LogThreads)
	r.ExitAdapt = exitadapt.New(eng, r.Guard, opts.ExitCode)
	r.Registry = interpose.New(caps, r.Dispatch, r.Threads, r.ExitAdapt)
	return r
}

var (
	initOnce       sync.Once
	defaultRuntime *Runtime
)

// Init builds the process-wide runtime and triggers the engine's
// one-time setup. Safe to call multiple times; subsequent calls are
// no-ops. A malformed option string is a fatal setup failure: the
// detector cannot run with configuration it does not understand.
func Init() *Runtime {
	initOnce.Do(func() {
		opts, err := options.Load()
		if err != nil {
			log.Criticalf("invalid configuration: %s", err.Error())
			os.Exit(1)
		}
		if opts.Verbosity > 0 {
			commonlog.Configure(opts.Verbosity, nil)
		}
		defaultRuntime = NewRuntime(nil, opts, platform.Default())
		defaultRuntime.Dispatch.EnsureInitialized()
	})
	return defaultRuntime
}

// Default returns the process-wide runtime, initializing it on first
// use.
func Default() *Runtime {
	return Init()
}

// resetForTest drops the process-wide runtime so the next Init builds
// a fresh one.
func resetForTest() {
	initOnce = sync.Once{}
	defaultRuntime = nil
}
