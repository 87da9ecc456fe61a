package magic

import "fmt"

// Event is one decoded signal from an instrumented target. Buffer,
// SizePtr and MaxSize are raw register values in the target's address
// space; which of them are meaningful depends on the kind.
type Event struct {
	Kind Kind

	// Index distinguishes signal sites when a target contains more
	// than one. Sites that do not choose an index use DefaultIndex.
	Index uint16

	Buffer  uint64
	SizePtr uint64
	MaxSize uint64
}

// DecodeEvent interprets the argument registers a0..a3 captured when a
// sentinel with magic number n trapped. The index is the low 16 bits
// of a0; registers beyond the kind's argument count are ignored.
func DecodeEvent(n uint8, args [4]uint64) (Event, error) {
	k := Kind(n)
	if !k.Valid() {
		return Event{}, fmt.Errorf("magic number %d is not a known event kind", n)
	}

	ev := Event{Kind: k, Index: uint16(args[0])}
	switch k {
	case KindStart:
		ev.Buffer = args[1]
		ev.SizePtr = args[2]
	case KindStartWithMaximumSize:
		ev.Buffer = args[1]
		ev.MaxSize = args[2]
	case KindStartWithMaximumSizeAndPtr:
		ev.Buffer = args[1]
		ev.SizePtr = args[2]
		ev.MaxSize = args[3]
	case KindStop, KindAssert:
	}
	return ev, nil
}

// String formats the event with its meaningful operands only.
func (e Event) String() string {
	switch e.Kind {
	case KindStart:
		return fmt.Sprintf("%s(index=%#06x, buffer=%#x, size_ptr=%#x)", e.Kind, e.Index, e.Buffer, e.SizePtr)
	case KindStartWithMaximumSize:
		return fmt.Sprintf("%s(index=%#06x, buffer=%#x, max_size=%d)", e.Kind, e.Index, e.Buffer, e.MaxSize)
	case KindStartWithMaximumSizeAndPtr:
		return fmt.Sprintf("%s(index=%#06x, buffer=%#x, size_ptr=%#x, max_size=%d)",
			e.Kind, e.Index, e.Buffer, e.SizePtr, e.MaxSize)
	default:
		return fmt.Sprintf("%s(index=%#06x)", e.Kind, e.Index)
	}
}
