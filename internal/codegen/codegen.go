// Package codegen renders signaling glue for foreign toolchains, a C
// macro header and a GNU as include, plus a machine readable protocol
// manifest for monitor-side tooling. Every numeric value in the output
// comes from the magic package, the templates never hard-code protocol
// constants.
package codegen

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"

	"github.com/fuzztrap/fuzztrap/magic"
)

//go:embed cheader.tmpl
var cHeaderContent string

//go:embed gas.tmpl
var gasContent string

// Render targets. Template names should not contain path separators to
// not to be confused with file paths.
const (
	TargetCHeader  = "c-header"
	TargetGas      = "gas"
	TargetManifest = "manifest"
)

// Architectures the glue can be rendered for. The sentinel encoding is
// the same on both, only the surrounding prose differs.
const (
	ArchRV32 = "riscv32"
	ArchRV64 = "riscv64"
)

// Targets lists the accepted render targets in display order.
func Targets() []string {
	return []string{TargetCHeader, TargetGas, TargetManifest}
}

// Args parameterizes the rendered glue.
type Args struct {
	// Arch selects the architecture the prose talks about, ArchRV64
	// when empty.
	Arch string
	// DefaultIndex overrides the site index the short-form macros pass.
	DefaultIndex uint16
}

func (a *Args) normalize() error {
	if a.Arch == "" {
		a.Arch = ArchRV64
	}
	if a.Arch != ArchRV32 && a.Arch != ArchRV64 {
		return fmt.Errorf("unknown architecture %q, expected %s or %s", a.Arch, ArchRV32, ArchRV64)
	}
	return nil
}

// TemplateManager holds the pre-parsed glue templates.
type TemplateManager struct {
	cHeader *template.Template
	gas     *template.Template
}

// NewTemplateManager initializes a new TemplateManager with parsed
// templates.
func NewTemplateManager() (*TemplateManager, error) {
	cHeader, err := template.New(TargetCHeader).Parse(cHeaderContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", TargetCHeader, err)
	}

	gas, err := template.New(TargetGas).Parse(gasContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", TargetGas, err)
	}

	return &TemplateManager{cHeader: cHeader, gas: gas}, nil
}

// Render writes the glue for a template target to w. The manifest
// target is not a template, it renders through Manifest instead.
func (tm *TemplateManager) Render(w io.Writer, target string, args Args) error {
	if err := args.normalize(); err != nil {
		return err
	}

	var tmpl *template.Template
	switch target {
	case TargetCHeader:
		tmpl = tm.cHeader
	case TargetGas:
		tmpl = tm.gas
	default:
		return fmt.Errorf("unknown target %q", target)
	}
	return tmpl.Execute(w, newTemplateData(args))
}

// sig carries one event kind's constants, formatted for the templates.
type sig struct {
	N    string
	Word string
}

type templateData struct {
	Arch               string
	Bits               int
	Magic              string
	DefaultIndex       string
	Start              sig
	StartMaxSize       sig
	StartMaxSizeAndPtr sig
	Stop               sig
	Assert             sig
}

func newTemplateData(args Args) templateData {
	k := func(kind magic.Kind) sig {
		return sig{
			N:    fmt.Sprintf("0x%04X", uint8(kind)),
			Word: fmt.Sprintf("0x%08X", magic.Sentinel(kind)),
		}
	}

	bits := 32
	if args.Arch == ArchRV64 {
		bits = 64
	}
	return templateData{
		Arch:               args.Arch,
		Bits:               bits,
		Magic:              fmt.Sprintf("0x%04X", magic.MagicNumber),
		DefaultIndex:       fmt.Sprintf("0x%04X", args.DefaultIndex),
		Start:              k(magic.KindStart),
		StartMaxSize:       k(magic.KindStartWithMaximumSize),
		StartMaxSizeAndPtr: k(magic.KindStartWithMaximumSizeAndPtr),
		Stop:               k(magic.KindStop),
		Assert:             k(magic.KindAssert),
	}
}
