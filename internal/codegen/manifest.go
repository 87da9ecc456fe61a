package codegen

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fuzztrap/fuzztrap/internal/build"
	"github.com/fuzztrap/fuzztrap/magic"
)

// Manifest is the machine readable protocol description monitor-side
// tooling consumes: event kinds, their sentinel words and the register
// assignment.
type Manifest struct {
	Protocol      string            `json:"protocol" yaml:"protocol"`
	Version       string            `json:"version" yaml:"version"`
	Architectures []string          `json:"architectures" yaml:"architectures"`
	CompatMagic   uint16            `json:"compat_magic" yaml:"compat_magic"`
	DefaultIndex  uint16            `json:"default_index" yaml:"default_index"`
	MaxMagic      uint8             `json:"max_magic" yaml:"max_magic"`
	Registers     ManifestRegisters `json:"registers" yaml:"registers"`
	Kinds         []ManifestKind    `json:"kinds" yaml:"kinds"`
}

// ManifestRegisters names the registers carrying the event operands, as
// RISC-V x-register numbers.
type ManifestRegisters struct {
	Index int   `json:"index" yaml:"index"`
	Args  []int `json:"args" yaml:"args"`
}

// ManifestKind is one event kind.
type ManifestKind struct {
	Name  string `json:"name" yaml:"name"`
	Magic uint8  `json:"magic" yaml:"magic"`
	Word  uint32 `json:"word" yaml:"word"`
	Args  int    `json:"args" yaml:"args"`
}

// NewManifest builds the manifest for the current protocol version.
func NewManifest(args Args) (Manifest, error) {
	if err := args.normalize(); err != nil {
		return Manifest{}, err
	}

	kinds := []magic.Kind{
		magic.KindStart,
		magic.KindStartWithMaximumSize,
		magic.KindStartWithMaximumSizeAndPtr,
		magic.KindStop,
		magic.KindAssert,
	}
	mk := make([]ManifestKind, 0, len(kinds))
	for _, k := range kinds {
		mk = append(mk, ManifestKind{
			Name:  k.String(),
			Magic: uint8(k),
			Word:  magic.Sentinel(k),
			Args:  k.NumArgs(),
		})
	}

	return Manifest{
		Protocol:      "fuzztrap",
		Version:       build.Version,
		Architectures: []string{ArchRV32, ArchRV64},
		CompatMagic:   magic.MagicNumber,
		DefaultIndex:  args.DefaultIndex,
		MaxMagic:      magic.MaxMagicNumber,
		Registers: ManifestRegisters{
			Index: magic.RegIndex,
			Args:  []int{magic.RegArg1, magic.RegArg2, magic.RegArg3},
		},
		Kinds: mk,
	}, nil
}

// WriteJSON renders the manifest as indented JSON.
func (m Manifest) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteYAML renders the manifest as YAML.
func (m Manifest) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
