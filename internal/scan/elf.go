package scan

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/fuzztrap/fuzztrap/errext"
)

// Segment is one scannable region of an image.
type Segment struct {
	Name string
	Addr uint64
	Data []byte
}

// Segments returns the executable regions of an image: the PROGBITS
// sections with the execute flag for ELF images, or the whole blob for
// raw ones.
func Segments(src Source, opts Options) ([]Segment, error) {
	if opts.Raw {
		data := make([]byte, src.Len())
		if n, err := src.ReadAt(data, 0); err != nil && n != len(data) {
			return nil, fmt.Errorf("could not read raw image: %w", err)
		}
		return []Segment{{Name: "raw", Addr: opts.Base, Data: data}}, nil
	}

	f, err := elf.NewFile(src)
	if err != nil {
		return nil, errext.WithHint(
			fmt.Errorf("could not parse ELF image: %w", err),
			"flat binary dumps have to be scanned with --raw")
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V image, machine is %s", f.Machine)
	}

	var segs []Segment
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("could not read section %s: %w", s.Name, err)
		}
		segs = append(segs, Segment{Name: s.Name, Addr: s.Addr, Data: data})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Addr < segs[j].Addr })
	return segs, nil
}
