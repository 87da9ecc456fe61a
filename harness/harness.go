// Package harness compiles fuzzing-monitor signal sites into RISC-V
// target software.
//
// A signal is a single sentinel instruction, srai zero, zero, <kind>,
// preceded by loads of the argument registers a0..a3. Writing the zero
// register changes nothing, so an instrumented target runs unmodified
// on hardware and under emulators that do not intercept the sentinel;
// no monitor has to be present. A monitor that does intercept it reads
// the kind from the shift amount, a site index from a0 and the payload
// from a1..a3, and drives the fuzzing loop from there: it captures the
// buffer and size cell addresses at a start signal, writes a fresh
// testcase and its size before each resume, and treats stop and assert
// signals as the two ends of an iteration.
//
// The typical target does:
//
//	buf := make([]byte, 4096)
//	data := harness.Input(buf) // this iteration's testcase
//	parse(data)
//	harness.Stop()
//
// On architectures other than riscv64 every function in this package is
// an empty stub. 32-bit RISC-V targets, which Go cannot build, get the
// same signal sites from glue generated by the fuzztrap CLI.
package harness

import "unsafe"

// DefaultIndex is the site index emitted by the functions that do not
// take one. Targets with a single signal site never need another.
const DefaultIndex uint16 = 0x0000

// Start signals the beginning of an iteration with index DefaultIndex.
// See StartIndex.
func Start(buf []byte, size *uint) {
	StartIndex(DefaultIndex, buf, size)
}

// StartIndex signals the beginning of an iteration. The monitor reads
// *size once as the capacity of buf, and before resuming the target it
// writes the testcase into buf and its length into *size. Initialize
// *size to len(buf) before calling. Without a monitor, buf and *size
// come back untouched.
//
// buf and the size cell escape to the heap so that the addresses the
// monitor captures stay valid between iterations.
func StartIndex(index uint16, buf []byte, size *uint) {
	signalStart(uintptr(index), unsafe.Pointer(unsafe.SliceData(buf)), unsafe.Pointer(size))
}

// StartWithMaximumSize signals the beginning of an iteration with index
// DefaultIndex. See StartWithMaximumSizeIndex.
func StartWithMaximumSize(buf []byte, maxSize uint) {
	StartWithMaximumSizeIndex(DefaultIndex, buf, maxSize)
}

// StartWithMaximumSizeIndex signals the beginning of an iteration,
// passing the maximum testcase size by value. The monitor writes at
// most maxSize bytes into buf each iteration; the target is not told
// the actual size, so this form suits fixed-size inputs.
func StartWithMaximumSizeIndex(index uint16, buf []byte, maxSize uint) {
	signalStartMaxSize(uintptr(index), unsafe.Pointer(unsafe.SliceData(buf)), uintptr(maxSize))
}

// StartWithMaximumSizeAndPtr signals the beginning of an iteration with
// index DefaultIndex. See StartWithMaximumSizeAndPtrIndex.
func StartWithMaximumSizeAndPtr(buf []byte, size *uint, maxSize uint) {
	StartWithMaximumSizeAndPtrIndex(DefaultIndex, buf, size, maxSize)
}

// StartWithMaximumSizeAndPtrIndex signals the beginning of an
// iteration, passing both a size cell and an explicit maximum. The
// monitor caps testcases at maxSize regardless of *size's initial
// value and writes each testcase's length into *size.
func StartWithMaximumSizeAndPtrIndex(index uint16, buf []byte, size *uint, maxSize uint) {
	signalStartMaxSizeAndPtr(uintptr(index), unsafe.Pointer(unsafe.SliceData(buf)), unsafe.Pointer(size), uintptr(maxSize))
}

// Stop signals the normal end of an iteration with index DefaultIndex.
func Stop() {
	StopIndex(DefaultIndex)
}

// StopIndex signals the normal end of an iteration. The monitor resets
// the target for the next testcase; execution does not continue past
// the signal under a monitor.
func StopIndex(index uint16) {
	signalStop(uintptr(index))
}

// Assert signals a detected failure with index DefaultIndex.
func Assert() {
	AssertIndex(DefaultIndex)
}

// AssertIndex signals a detected failure, ending the iteration with the
// current testcase recorded as a solution. Use it where the target
// checks an invariant the fuzzer is hunting violations of.
func AssertIndex(index uint16) {
	signalAssert(uintptr(index))
}

// Input signals the beginning of an iteration with index DefaultIndex
// and returns the testcase. See InputIndex.
func Input(buf []byte) []byte {
	return InputIndex(DefaultIndex, buf)
}

// InputIndex performs a StartIndex with an internal size cell
// initialized to len(buf) and returns the slice of buf holding this
// iteration's testcase. Without a monitor it returns buf whole.
func InputIndex(index uint16, buf []byte) []byte {
	size := uint(len(buf))
	StartIndex(index, buf, &size)
	return buf[:size]
}
