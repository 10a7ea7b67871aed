// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

// Object-allocation operator family. Every form reduces to the
// malloc/memalign/free primitives; the difference is purely policy:
// the plain forms treat exhaustion as fatal (there is no exception
// machinery to unwind with), the nothrow forms return 0.

// reportOutOfMemory logs the fatal one-liner and terminates. Never
// returns under the default Die hook.
func (d *Dispatcher) reportOutOfMemory(size int) {
	log.Criticalf("out of memory: allocator failed to allocate %d byte(s)", size)
	d.Die()
}

// New allocates a single object of size bytes. Fatal on exhaustion.
func (d *Dispatcher) New(size int) uintptr {
	p := d.Malloc(size)
	if p == 0 {
		d.reportOutOfMemory(size)
	}
	return p
}

// NewArray allocates an array block of size bytes. Fatal on
// exhaustion.
func (d *Dispatcher) NewArray(size int) uintptr {
	p := d.Malloc(size)
	if p == 0 {
		d.reportOutOfMemory(size)
	}
	return p
}

// NewNothrow is New under the nothrow policy: 0 on exhaustion.
func (d *Dispatcher) NewNothrow(size int) uintptr { return d.Malloc(size) }

// NewArrayNothrow is NewArray under the nothrow policy.
func (d *Dispatcher) NewArrayNothrow(size int) uintptr { return d.Malloc(size) }

// NewAligned allocates an alignment-qualified object. Fatal on
// exhaustion; alignment violations are exhaustion too, matching the
// primitive's contract.
func (d *Dispatcher) NewAligned(size int, align uintptr) uintptr {
	p := d.Memalign(align, size)
	if p == 0 {
		d.reportOutOfMemory(size)
	}
	return p
}

// NewArrayAligned is the array form of NewAligned.
func (d *Dispatcher) NewArrayAligned(size int, align uintptr) uintptr {
	p := d.Memalign(align, size)
	if p == 0 {
		d.reportOutOfMemory(size)
	}
	return p
}

// NewAlignedNothrow is NewAligned under the nothrow policy.
func (d *Dispatcher) NewAlignedNothrow(size int, align uintptr) uintptr {
	return d.Memalign(align, size)
}

// NewArrayAlignedNothrow is NewArrayAligned under the nothrow policy.
func (d *Dispatcher) NewArrayAlignedNothrow(size int, align uintptr) uintptr {
	return d.Memalign(align, size)
}

// Delete releases a single object.
func (d *Dispatcher) Delete(ptr uintptr) { d.Free(ptr) }

// DeleteArray releases an array block.
func (d *Dispatcher) DeleteArray(ptr uintptr) { d.Free(ptr) }

// DeleteNothrow releases under the nothrow policy; deallocation never
// fails, so it reduces to Delete.
func (d *Dispatcher) DeleteNothrow(ptr uintptr) { d.Free(ptr) }

// DeleteArrayNothrow is the array form of DeleteNothrow.
func (d *Dispatcher) DeleteArrayNothrow(ptr uintptr) { d.Free(ptr) }

// DeleteSized releases a single object with a caller-asserted size.
// The size is advisory here; the registry knows the real one.
func (d *Dispatcher) DeleteSized(ptr uintptr, size int) { d.Free(ptr) }

// DeleteArraySized is the array form of DeleteSized.
func (d *Dispatcher) DeleteArraySized(ptr uintptr, size int) { d.Free(ptr) }

// DeleteAligned releases an alignment-qualified object.
func (d *Dispatcher) DeleteAligned(ptr uintptr, align uintptr) { d.Free(ptr) }

// DeleteArrayAligned is the array form of DeleteAligned.
func (d *Dispatcher) DeleteArrayAligned(ptr uintptr, align uintptr) { d.Free(ptr) }

// DeleteSizedAligned releases a sized, alignment-qualified object.
func (d *Dispatcher) DeleteSizedAligned(ptr uintptr, size int, align uintptr) { d.Free(ptr) }

// DeleteArraySizedAligned is the array form of DeleteSizedAligned.
func (d *Dispatcher) DeleteArraySizedAligned(ptr uintptr, size int, align uintptr) { d.Free(ptr) }
