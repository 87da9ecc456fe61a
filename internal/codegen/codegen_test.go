package codegen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fuzztrap/fuzztrap/magic"
)

func render(t *testing.T, target string, args Args) string {
	t.Helper()
	tm, err := NewTemplateManager()
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, tm.Render(&sb, target, args))
	return sb.String()
}

func TestRenderCHeader(t *testing.T) {
	t.Parallel()

	out := render(t, TargetCHeader, Args{})

	for _, want := range []string{
		"#ifndef FUZZTRAP_H",
		"#ifndef FUZZING_BUILD_MODE_UNSAFE_FOR_PRODUCTION",
		"#define MAGIC (0x4711U)",
		"#define DEFAULT_INDEX (0x0000U)",
		"#define N_START_BUFFER_PTR_SIZE_PTR (0x0001U)",
		"#define N_START_BUFFER_PTR_SIZE_VAL (0x0002U)",
		"#define N_START_BUFFER_PTR_SIZE_PTR_VAL (0x0003U)",
		"#define N_STOP_NORMAL (0x0004U)",
		"#define N_STOP_ASSERT (0x0005U)",
		"#define HARNESS_START(buffer, size_ptr)",
		"#define HARNESS_START_INDEX(start_index, buffer, size_ptr)",
		"#define HARNESS_START_WITH_MAXIMUM_SIZE(buffer, max_size)",
		"#define HARNESS_START_WITH_MAXIMUM_SIZE_AND_PTR(buffer, size_ptr, max_size)",
		"#define HARNESS_STOP()",
		"#define HARNESS_ASSERT_INDEX(assert_index)",
		`"srai zero, zero, %0"`,
		"RISC-V (64-bit)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderCHeaderWords(t *testing.T) {
	t.Parallel()

	out := render(t, TargetCHeader, Args{})
	assert.Contains(t, out, "0x40105013")
	assert.Contains(t, out, "0x40205013")
	assert.Contains(t, out, "0x40305013")
	assert.Contains(t, out, "0x40405013")
	assert.Contains(t, out, "0x40505013")
}

func TestRenderCHeaderRV32(t *testing.T) {
	t.Parallel()

	out := render(t, TargetCHeader, Args{Arch: ArchRV32})
	assert.Contains(t, out, "RISC-V (32-bit)")
	assert.Contains(t, out, "(riscv32)")
}

func TestRenderCHeaderDefaultIndexOverride(t *testing.T) {
	t.Parallel()

	out := render(t, TargetCHeader, Args{DefaultIndex: 3})
	assert.Contains(t, out, "#define DEFAULT_INDEX (0x0003U)")
}

func TestRenderGas(t *testing.T) {
	t.Parallel()

	out := render(t, TargetGas, Args{})

	for _, want := range []string{
		".ifndef FUZZTRAP_S",
		".set FUZZTRAP_DEFAULT_INDEX, 0x0000",
		".set FUZZTRAP_N_START, 0x0001",
		".set FUZZTRAP_N_START_MAX_SIZE, 0x0002",
		".set FUZZTRAP_N_START_MAX_SIZE_PTR, 0x0003",
		".set FUZZTRAP_N_STOP, 0x0004",
		".set FUZZTRAP_N_ASSERT, 0x0005",
		".macro fuzztrap_start buffer, size_ptr, index=FUZZTRAP_DEFAULT_INDEX",
		".macro fuzztrap_stop index=FUZZTRAP_DEFAULT_INDEX",
		"srai zero, zero, FUZZTRAP_N_ASSERT",
		"word 0x40105013",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderUnknownTarget(t *testing.T) {
	t.Parallel()

	tm, err := NewTemplateManager()
	require.NoError(t, err)
	err = tm.Render(&strings.Builder{}, "rust", Args{})
	require.ErrorContains(t, err, `unknown target "rust"`)
}

func TestRenderUnknownArch(t *testing.T) {
	t.Parallel()

	tm, err := NewTemplateManager()
	require.NoError(t, err)
	err = tm.Render(&strings.Builder{}, TargetCHeader, Args{Arch: "arm64"})
	require.ErrorContains(t, err, `unknown architecture "arm64"`)
}

func TestManifestValues(t *testing.T) {
	t.Parallel()

	m, err := NewManifest(Args{})
	require.NoError(t, err)

	assert.Equal(t, "fuzztrap", m.Protocol)
	assert.Equal(t, []string{"riscv32", "riscv64"}, m.Architectures)
	assert.Equal(t, uint16(magic.MagicNumber), m.CompatMagic)
	assert.Equal(t, magic.DefaultIndex, m.DefaultIndex)
	assert.Equal(t, uint8(magic.MaxMagicNumber), m.MaxMagic)
	assert.Equal(t, ManifestRegisters{Index: 10, Args: []int{11, 12, 13}}, m.Registers)

	require.Len(t, m.Kinds, 5)
	assert.Equal(t, "start", m.Kinds[0].Name)
	assert.Equal(t, "assert", m.Kinds[4].Name)
	for _, k := range m.Kinds {
		kind := magic.Kind(k.Magic)
		assert.True(t, kind.Valid())
		assert.Equal(t, magic.Sentinel(kind), k.Word)
		assert.Equal(t, kind.NumArgs(), k.Args)
	}
}

func TestManifestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewManifest(Args{DefaultIndex: 7})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, m.WriteJSON(&sb))

	var back Manifest
	require.NoError(t, json.Unmarshal([]byte(sb.String()), &back))
	assert.Equal(t, m, back)
}

func TestManifestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewManifest(Args{})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, m.WriteYAML(&sb))

	var back Manifest
	require.NoError(t, yaml.Unmarshal([]byte(sb.String()), &back))
	assert.Equal(t, m, back)
}
