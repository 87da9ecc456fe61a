package harness

import "unsafe"

// The signal stubs are implemented in harness_riscv64.s, one per event
// kind so the kind can be encoded as the sentinel's immediate. They are
// deliberately not marked go:noescape: pointer arguments must escape to
// the heap so the addresses a monitor captures stay stable.

func signalStart(index uintptr, buf, size unsafe.Pointer)

func signalStartMaxSize(index uintptr, buf unsafe.Pointer, maxSize uintptr)

func signalStartMaxSizeAndPtr(index uintptr, buf, size unsafe.Pointer, maxSize uintptr)

func signalStop(index uintptr)

func signalAssert(index uintptr)
