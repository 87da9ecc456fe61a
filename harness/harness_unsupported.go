//go:build !riscv64

package harness

import "unsafe"

// Signal sites exist only in riscv64 builds. Everywhere else the
// emitter compiles to nothing and targets run exactly as if
// uninstrumented.

func signalStart(index uintptr, buf, size unsafe.Pointer) {}

func signalStartMaxSize(index uintptr, buf unsafe.Pointer, maxSize uintptr) {}

func signalStartMaxSizeAndPtr(index uintptr, buf, size unsafe.Pointer, maxSize uintptr) {}

func signalStop(index uintptr) {}

func signalAssert(index uintptr) {}
