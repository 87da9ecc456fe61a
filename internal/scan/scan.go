// Package scan discovers fuzzing signal sites in built RISC-V guest
// images. A site is a sentinel word in executable code; the scanner
// also tries to recover the site index a real call loads into a0 right
// before signaling.
package scan

import (
	"encoding/binary"
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/fuzztrap/fuzztrap/magic"
)

// DefaultWindow is how many instructions the index recovery looks back
// from a sentinel by default.
const DefaultWindow = 16

// Options configures a Scan.
type Options struct {
	// Raw treats the image as a flat binary blob instead of an ELF.
	Raw bool
	// Base is the load address of a raw image.
	Base uint64
	// Window is how many instructions back to look for the site index.
	Window int
	// AllMagic reports sentinels whose magic numbers fall outside the
	// protocol kinds too.
	AllMagic bool
}

// Point is one discovered signal site.
type Point struct {
	Addr    uint64
	Section string
	Raw     uint32
	Kind    magic.Kind
	Index   null.Int
}

// Scan finds the signal sites in an image, ordered by address.
func Scan(src Source, opts Options) ([]Point, error) {
	segs, err := Segments(src, opts)
	if err != nil {
		return nil, err
	}

	var points []Point
	for _, seg := range segs {
		points = append(points, scanSegment(seg, opts)...)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Addr < points[j].Addr })
	return points, nil
}

type insn struct {
	word uint32
	is32 bool
}

func scanSegment(seg Segment, opts Options) []Point {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	data := seg.Data

	// First pass matches sentinel words at every halfword boundary, so
	// data embedded in a text section cannot hide one.
	type hit struct {
		off  int
		word uint32
	}
	var hits []hit
	hitAt := make(map[int]int)
	for off := 0; off+4 <= len(data); off += 2 {
		word := binary.LittleEndian.Uint32(data[off:])
		n, ok := magic.ParseSentinel(word)
		if !ok {
			continue
		}
		if !opts.AllMagic && !magic.Kind(n).Valid() {
			continue
		}
		hitAt[off] = len(hits)
		hits = append(hits, hit{off: off, word: word})
	}
	if len(hits) == 0 {
		return nil
	}

	// Second pass walks the instruction stream from the section start
	// and keeps a window of recent instructions for index recovery.
	// Sentinels the walk never lands on keep a null index.
	indexes := make([]null.Int, len(hits))
	var recent []insn
	for pos := 0; pos+2 <= len(data); {
		hw := binary.LittleEndian.Uint16(data[pos:])
		if hw&3 != 3 {
			recent = append(recent, insn{word: uint32(hw)})
			if len(recent) > window {
				recent = recent[1:]
			}
			pos += 2
			continue
		}
		if pos+4 > len(data) {
			break
		}
		word := binary.LittleEndian.Uint32(data[pos:])
		if i, ok := hitAt[pos]; ok {
			indexes[i] = indexFromRecent(recent)
		}
		recent = append(recent, insn{word: word, is32: true})
		if len(recent) > window {
			recent = recent[1:]
		}
		pos += 4
	}

	points := make([]Point, 0, len(hits))
	for i, h := range hits {
		n, _ := magic.ParseSentinel(h.word)
		points = append(points, Point{
			Addr:    seg.Addr + uint64(h.off),
			Section: seg.Name,
			Raw:     h.word,
			Kind:    magic.Kind(n),
			Index:   indexes[i],
		})
	}
	return points
}
