// Package magic defines the signaling protocol spoken by instrumented
// RISC-V targets running under an external monitor.
//
// A target signals the monitor by executing a sentinel instruction,
// an arithmetic shift right of the zero register:
//
//	srai zero, zero, <n>
//
// The instruction writes x0 and is therefore architecturally inert; on
// hardware, or under an emulator that does not intercept it, a signal
// costs one instruction and changes nothing. A monitor that does
// intercept it reads the shift amount n as the event kind and the
// argument registers a0..a3 as the event operands. a0 always holds the
// site index; a1..a3 carry the kind-specific payload.
//
// The encoding is identical for RV32 and RV64 as long as n stays below
// 32, which the protocol guarantees.
package magic

import "fmt"

// Kind is the event discriminator carried in the sentinel's shift
// amount. The values are a wire contract and are never renumbered.
type Kind uint8

const (
	// KindStart begins an iteration. a1 holds the testcase buffer
	// address, a2 the address of a size cell. The monitor reads the
	// cell once as the buffer capacity and thereafter writes the
	// actual testcase size into it before resuming the target.
	KindStart Kind = 0x0001

	// KindStartWithMaximumSize begins an iteration. a1 holds the
	// testcase buffer address and a2 the maximum testcase size by
	// value. The target is not told the actual size.
	KindStartWithMaximumSize Kind = 0x0002

	// KindStartWithMaximumSizeAndPtr begins an iteration. a1 holds
	// the buffer address, a2 the address of a size cell and a3 the
	// maximum testcase size.
	KindStartWithMaximumSizeAndPtr Kind = 0x0003

	// KindStop ends an iteration normally, without a solution.
	KindStop Kind = 0x0004

	// KindAssert ends an iteration signaling a detected failure.
	KindAssert Kind = 0x0005
)

// DefaultIndex is the site index emitted by signal sites that do not
// choose one explicitly.
const DefaultIndex uint16 = 0x0000

// MaxMagicNumber is the largest shift amount a sentinel can carry; the
// shamt field of srai is five bits wide on RV32.
const MaxMagicNumber = 31

// MagicNumber identifies the protocol in generated headers and
// manifests. Monitors for x86 targets use it as the CPUID leaf of the
// equivalent trap; RISC-V monitors key on the sentinel instruction
// alone.
const MagicNumber = 0x4711

// Argument registers at the moment the sentinel executes, as RISC-V
// x-register numbers.
const (
	RegIndex = 10 // a0
	RegArg1  = 11 // a1
	RegArg2  = 12 // a2
	RegArg3  = 13 // a3
)

const (
	sentinelBase = 0x40005013 // srai zero, zero, 0
	sentinelMask = 0xFE0FFFFF // every field fixed except shamt[4:0]
	shamtShift   = 20
)

// String returns the conventional name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindStartWithMaximumSize:
		return "start_with_maximum_size"
	case KindStartWithMaximumSizeAndPtr:
		return "start_with_maximum_size_and_ptr"
	case KindStop:
		return "stop"
	case KindAssert:
		return "assert"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind returns the kind with the given conventional name.
func ParseKind(s string) (Kind, error) {
	for k := KindStart; k <= KindAssert; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Valid reports whether k is a kind this protocol version defines.
func (k Kind) Valid() bool {
	return k >= KindStart && k <= KindAssert
}

// IsStart reports whether k begins an iteration.
func (k Kind) IsStart() bool {
	return k == KindStart || k == KindStartWithMaximumSize || k == KindStartWithMaximumSizeAndPtr
}

// IsStop reports whether k ends an iteration, normally or not.
func (k Kind) IsStop() bool {
	return k == KindStop || k == KindAssert
}

// NumArgs returns how many of a0..a3 carry meaning for k, counting the
// index register.
func (k Kind) NumArgs() int {
	switch k {
	case KindStart, KindStartWithMaximumSize:
		return 3
	case KindStartWithMaximumSizeAndPtr:
		return 4
	case KindStop, KindAssert:
		return 1
	default:
		return 0
	}
}

// Sentinel returns the instruction word signaling k. It panics if k is
// out of the architectural shamt range; all defined kinds are in range.
func Sentinel(k Kind) uint32 {
	word, err := SentinelWord(uint8(k))
	if err != nil {
		panic(err)
	}
	return word
}

// SentinelWord returns the sentinel instruction word for an arbitrary
// magic number n in [0, MaxMagicNumber]. Numbers outside the kinds
// defined above are reserved.
func SentinelWord(n uint8) (uint32, error) {
	if n > MaxMagicNumber {
		return 0, fmt.Errorf("magic number %d does not fit the shamt field [0, %d]", n, MaxMagicNumber)
	}
	return sentinelBase | uint32(n)<<shamtShift, nil
}

// IsSentinel reports whether word encodes a sentinel instruction.
func IsSentinel(word uint32) bool {
	return word&sentinelMask == sentinelBase
}

// ParseSentinel extracts the magic number from an instruction word,
// reporting false if the word is not a sentinel.
func ParseSentinel(word uint32) (uint8, bool) {
	if !IsSentinel(word) {
		return 0, false
	}
	return uint8(word >> shamtShift & 0x1F), true
}
