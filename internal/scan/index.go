package scan

import (
	"gopkg.in/guregu/null.v3"

	"github.com/fuzztrap/fuzztrap/magic"
)

// Index recovery walks backward from a sentinel through the recently
// decoded instructions and looks for the nearest write to a0. Real call
// sites load the site index right before signaling, either as a single
// addi/c.li or as a lui+addi pair for values past the 12 bit immediate.
// Anything else, an a0 write we cannot resolve statically or any
// control transfer in between, yields a null index.

type a0Write int

const (
	a0None   a0Write = iota // does not touch a0 or the control flow
	a0Flow                  // control transfer, stop looking
	a0Opaque                // writes a0 with something non-constant
	a0Const                 // writes a0 with a constant
	a0AddLow                // addi a0, a0, imm: needs a preceding upper load
	a0Upper                 // lui a0, imm
)

func indexFromRecent(recent []insn) null.Int {
	needUpper := false
	low := int32(0)
	for i := len(recent) - 1; i >= 0; i-- {
		var cls a0Write
		var val int32
		if recent[i].is32 {
			cls, val = classify32(recent[i].word)
		} else {
			cls, val = classify16(uint16(recent[i].word))
		}
		switch cls {
		case a0None:
			continue
		case a0Const, a0Upper:
			if needUpper {
				val += low
			}
			return makeIndex(val)
		case a0AddLow:
			if needUpper {
				return null.Int{}
			}
			needUpper = true
			low = val
		default:
			return null.Int{}
		}
	}
	return null.Int{}
}

// makeIndex truncates the recovered register value to the 16 bits the
// protocol keeps.
func makeIndex(v int32) null.Int {
	return null.IntFrom(int64(uint16(uint32(v))))
}

func classify32(w uint32) (a0Write, int32) {
	if magic.IsSentinel(w) {
		// A previous signal site, whatever loaded a0 before it is not
		// ours.
		return a0Flow, 0
	}
	op := w & 0x7f
	switch op {
	case 0x63, 0x6f, 0x67: // branch, jal, jalr
		return a0Flow, 0
	}
	if (w>>7)&0x1f != 10 {
		return a0None, 0
	}
	switch op {
	case 0x37: // lui
		return a0Upper, int32(w & 0xfffff000)
	case 0x13: // op-imm
		if (w>>12)&7 == 0 { // addi
			imm := signExtend(w>>20, 12)
			switch (w >> 15) & 0x1f {
			case 0:
				return a0Const, imm
			case 10:
				return a0AddLow, imm
			}
		}
		return a0Opaque, 0
	case 0x17, 0x03, 0x1b, 0x33, 0x3b, 0x2f, 0x73:
		// auipc, loads, op-imm-32, op, op-32, amo, csr
		return a0Opaque, 0
	}
	return a0None, 0
}

func classify16(hw uint16) (a0Write, int32) {
	rd := uint32(hw>>7) & 0x1f
	switch hw & 3 {
	case 0:
		switch hw >> 13 {
		case 0, 2, 3: // c.addi4spn, c.lw, c.ld
			if 8+(uint32(hw>>2)&7) == 10 {
				return a0Opaque, 0
			}
		}
	case 1:
		switch hw >> 13 {
		case 0: // c.addi
			if rd == 10 {
				return a0AddLow, immCI(hw)
			}
		case 1: // c.jal on RV32, c.addiw on RV64
			if rd == 10 {
				return a0Opaque, 0
			}
			return a0Flow, 0
		case 2: // c.li
			if rd == 10 {
				return a0Const, immCI(hw)
			}
		case 3: // c.lui
			if rd == 10 {
				return a0Upper, immCI(hw) << 12
			}
		case 5, 6, 7: // c.j, c.beqz, c.bnez
			return a0Flow, 0
		}
	case 2:
		switch hw >> 13 {
		case 0, 2, 3: // c.slli, c.lwsp, c.ldsp
			if rd == 10 {
				return a0Opaque, 0
			}
		case 4:
			if (hw>>2)&0x1f == 0 { // c.jr, c.jalr, c.ebreak
				return a0Flow, 0
			}
			if rd == 10 { // c.mv, c.add
				return a0Opaque, 0
			}
		}
	}
	return a0None, 0
}

// immCI extracts the sign extended 6 bit immediate of a CI format
// instruction.
func immCI(hw uint16) int32 {
	return signExtend((uint32(hw>>12)&1)<<5|uint32(hw>>2)&0x1f, 6)
}

// signExtend interprets the low bits of v as a two's complement value.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
