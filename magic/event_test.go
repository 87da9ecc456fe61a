package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	testdata := map[string]struct {
		n        uint8
		args     [4]uint64
		expected Event
	}{
		"start": {
			n:    1,
			args: [4]uint64{3, 0x80001000, 0x80002000, 0xdead},
			expected: Event{
				Kind: KindStart, Index: 3,
				Buffer: 0x80001000, SizePtr: 0x80002000,
			},
		},
		"start with maximum size": {
			n:    2,
			args: [4]uint64{0, 0x80001000, 4096, 0xdead},
			expected: Event{
				Kind: KindStartWithMaximumSize,
				Buffer: 0x80001000, MaxSize: 4096,
			},
		},
		"start with maximum size and ptr": {
			n:    3,
			args: [4]uint64{0xffff, 0x80001000, 0x80002000, 4096},
			expected: Event{
				Kind: KindStartWithMaximumSizeAndPtr, Index: 0xffff,
				Buffer: 0x80001000, SizePtr: 0x80002000, MaxSize: 4096,
			},
		},
		"stop ignores payload registers": {
			n:        4,
			args:     [4]uint64{7, 0x80001000, 0x80002000, 4096},
			expected: Event{Kind: KindStop, Index: 7},
		},
		"assert": {
			n:        5,
			args:     [4]uint64{0x4711, 0, 0, 0},
			expected: Event{Kind: KindAssert, Index: 0x4711},
		},
		"index is the low 16 bits of a0": {
			n:        4,
			args:     [4]uint64{0xffffffff12345678, 0, 0, 0},
			expected: Event{Kind: KindStop, Index: 0x5678},
		},
	}
	for name, tc := range testdata {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ev, err := DecodeEvent(tc.n, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ev)
		})
	}
}

func TestDecodeEventUnknownKind(t *testing.T) {
	t.Parallel()

	for _, n := range []uint8{0, 6, 17, 31, 200} {
		_, err := DecodeEvent(n, [4]uint64{})
		require.Errorf(t, err, "magic number %d", n)
		assert.ErrorContains(t, err, "not a known event kind")
	}
}

func TestEventString(t *testing.T) {
	t.Parallel()

	ev, err := DecodeEvent(1, [4]uint64{3, 0x80001000, 0x80002000, 0})
	require.NoError(t, err)
	assert.Equal(t, "start(index=0x0003, buffer=0x80001000, size_ptr=0x80002000)", ev.String())

	ev, err = DecodeEvent(5, [4]uint64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "assert(index=0x0000)", ev.String())

	ev, err = DecodeEvent(2, [4]uint64{1, 0x100, 64, 0})
	require.NoError(t, err)
	assert.Equal(t, "start_with_maximum_size(index=0x0001, buffer=0x100, max_size=64)", ev.String())
}
