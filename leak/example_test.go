package leak_test

import (
	"fmt"

	"github.com/kolkov/leakdetector/internal/leak/thread"
	"github.com/kolkov/leakdetector/leak"
)

// Basic allocate/free flow through the interposed entry points.
func Example() {
	leak.Init()

	p := leak.Malloc(64)
	copy(leak.Bytes(p), "hello")
	leak.Free(p)

	fmt.Println(leak.CheckLeaks())
}

// Thread lifecycle: the callback observes its identity already
// registered with the tracking engine.
func Example_threads() {
	leak.Init()

	t, err := leak.Create(&thread.Attr{StackSize: 1 << 20}, func(arg any) any {
		return arg.(int) * 2
	}, 21)
	if err != nil {
		panic(err)
	}
	result, _ := leak.Join(t)
	fmt.Println(result)
}

// Bounded untracked regions with the reentrancy guard.
func Example_disableTracking() {
	leak.Init()

	func() {
		defer leak.DisableTracking()()
		// Allocations here are excluded from leak reporting.
		_ = leak.Malloc(32)
	}()
}
