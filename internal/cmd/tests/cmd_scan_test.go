package tests

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzztrap/fuzztrap/internal/cmd"
	"github.com/fuzztrap/fuzztrap/internal/lib/testutils"
	"github.com/fuzztrap/fuzztrap/lib/fsext"
	"github.com/fuzztrap/fuzztrap/magic"
)

// addi a0, zero, imm, the canonical way compilers materialize a small
// site index right before the sentinel.
func liA0(imm int32) uint32 {
	return uint32(imm)<<20 | 10<<7 | 0x13
}

func rawImage(words ...uint32) []byte {
	img := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(img[i*4:], w)
	}
	return img
}

// twoSiteState returns a test state with a flat image in the fake cwd
// holding a start site with index 3 and a stop site with index 7.
func twoSiteState(t *testing.T) *GlobalTestState {
	ts := NewGlobalTestState(t)
	img := rawImage(
		liA0(3), magic.Sentinel(magic.KindStart),
		liA0(7), magic.Sentinel(magic.KindStop),
	)
	require.NoError(t, fsext.WriteFile(ts.FS, filepath.Join(ts.Cwd, "guest.bin"), img, 0o644))
	return ts
}

func TestScanRawText(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 2 signal site(s)")
	assert.Contains(t, stdout, "0x00000004")
	assert.Contains(t, stdout, "kind=start")
	assert.Contains(t, stdout, "index=0x0003")
	assert.Contains(t, stdout, "kind=stop")
	assert.Contains(t, stdout, "index=0x0007")
	assert.Contains(t, stdout, "found 2 signal site(s) in 1 image(s)")
	assert.NotContains(t, stdout, "\x1b[")
	assert.Empty(t, ts.Stderr.Bytes())
}

func TestScanRawJSON(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--format", "json", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	var report struct {
		Images []struct {
			Path   string `json:"path"`
			Points []struct {
				Addr    string `json:"addr"`
				Section string `json:"section"`
				Word    string `json:"word"`
				Magic   uint8  `json:"magic"`
				Kind    string `json:"kind"`
				Index   *int64 `json:"index"`
			} `json:"points"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(ts.Stdout.Bytes(), &report))
	require.Len(t, report.Images, 1)
	assert.Equal(t, "guest.bin", report.Images[0].Path)
	require.Len(t, report.Images[0].Points, 2)

	first := report.Images[0].Points[0]
	assert.Equal(t, "0x4", first.Addr)
	assert.Equal(t, "raw", first.Section)
	assert.Equal(t, "0x40105013", first.Word)
	assert.Equal(t, uint8(1), first.Magic)
	assert.Equal(t, "start", first.Kind)
	require.NotNil(t, first.Index)
	assert.EqualValues(t, 3, *first.Index)

	second := report.Images[0].Points[1]
	assert.Equal(t, "0xc", second.Addr)
	assert.Equal(t, "stop", second.Kind)
	require.NotNil(t, second.Index)
	assert.EqualValues(t, 7, *second.Index)
}

func TestScanRawYAML(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--format", "yaml", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "path: guest.bin")
	assert.Contains(t, stdout, "kind: start")
	assert.Contains(t, stdout, "kind: stop")
	assert.Contains(t, stdout, "index: 7")
}

func TestScanRawBase(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--base", "0x80000000", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "0x80000004")
	assert.Contains(t, ts.Stdout.String(), "0x8000000c")
}

func TestScanBaseWithoutRaw(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--base", "0x80000000", "guest.bin"}
	ts.ExpectedExitCode = 104 // invalid config
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		"--base only applies to raw images"))
}

func TestScanUnknownFormat(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--format", "xml", "guest.bin"}
	ts.ExpectedExitCode = 104 // invalid config
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		`unknown report format "xml"`))
}

func TestScanNoSites(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	img := rawImage(liA0(1), liA0(2), liA0(3))
	require.NoError(t, fsext.WriteFile(ts.FS, filepath.Join(ts.Cwd, "empty.bin"), img, 0o644))
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "empty.bin"}
	ts.ExpectedExitCode = 111 // no signal sites
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "found 0 signal site(s) in 1 image(s)")
	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		"no signal sites found"))
}

func TestScanMissingImage(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "missing.bin"}
	ts.ExpectedExitCode = 110 // scan failed
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		"could not open missing.bin"))
}

func TestScanNotAnELF(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "guest.bin"}
	ts.ExpectedExitCode = 110 // scan failed
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	entries := testutils.FilterEntries(ts.LoggerHook.Drain(), logrus.ErrorLevel, "could not parse ELF image")
	require.Len(t, entries, 1)
	assert.Equal(t, "flat binary dumps have to be scanned with --raw", entries[0].Data["hint"])
}

func TestScanKindFilter(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--kind", "stop", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 1 signal site(s)")
	assert.Contains(t, stdout, "kind=stop")
	assert.NotContains(t, stdout, "kind=start")
}

func TestScanIndexFilter(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--index", "3", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 1 signal site(s)")
	assert.Contains(t, stdout, "index=0x0003")
	assert.NotContains(t, stdout, "index=0x0007")
}

func TestScanIndexFilterZeroMatchesNothing(t *testing.T) {
	t.Parallel()

	// Both sites carry explicit indexes, so filtering for the default
	// index 0 filters everything away.
	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--index", "0", "guest.bin"}
	ts.ExpectedExitCode = 111 // no signal sites
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Contains(t, ts.Stdout.String(), "found 0 signal site(s) in 1 image(s)")
}

func TestScanUnknownKind(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "--kind", "resume", "guest.bin"}
	ts.ExpectedExitCode = 104 // invalid config
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		`unknown event kind "resume"`))
}

func TestScanMultipleImages(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	other := rawImage(magic.Sentinel(magic.KindAssert))
	require.NoError(t, fsext.WriteFile(ts.FS, filepath.Join(ts.Cwd, "other.bin"), other, 0o644))
	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "guest.bin", "other.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 2 signal site(s)")
	assert.Contains(t, stdout, "other.bin: 1 signal site(s)")
	assert.Contains(t, stdout, "kind=assert")
	assert.Contains(t, stdout, "--------")
	assert.Contains(t, stdout, "found 3 signal site(s) in 2 image(s)")
}

func TestScanGzippedImage(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	img := rawImage(liA0(3), magic.Sentinel(magic.KindStart))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(img)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, fsext.WriteFile(ts.FS, filepath.Join(ts.Cwd, "guest.bin.gz"), buf.Bytes(), 0o644))

	ts.CmdArgs = []string{"fuzztrap", "scan", "--raw", "guest.bin.gz"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin.gz: 1 signal site(s)")
	assert.Contains(t, stdout, "kind=start")
	assert.Contains(t, stdout, "index=0x0003")
}

func TestScanQuiet(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.CmdArgs = []string{"fuzztrap", "--quiet", "scan", "--raw", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 2 signal site(s)")
	assert.NotContains(t, stdout, "kind=start")
	assert.Contains(t, stdout, "found 2 signal site(s) in 1 image(s)")
}

func TestScanEnvConfig(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	ts.Env["FUZZTRAP_RAW"] = "true"
	ts.Env["FUZZTRAP_KIND"] = "start"
	ts.CmdArgs = []string{"fuzztrap", "scan", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 1 signal site(s)")
	assert.Contains(t, stdout, "kind=start")
}

func TestScanConfigFile(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	confPath := filepath.Join(ts.Cwd, "config.json")
	conf := []byte(`{"raw": true, "format": "json"}`)
	require.NoError(t, fsext.WriteFile(ts.FS, confPath, conf, 0o644))

	ts.CmdArgs = []string{"fuzztrap", "--config", confPath, "scan", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, json.Valid(ts.Stdout.Bytes()), "expected a JSON report, got: %s", ts.Stdout.String())
}

func TestScanConfigPrecedence(t *testing.T) {
	t.Parallel()

	// CLI flags beat environment variables, which beat the config file.
	ts := twoSiteState(t)
	confPath := filepath.Join(ts.Cwd, "config.json")
	conf := []byte(`{"raw": true, "format": "json", "kind": "start"}`)
	require.NoError(t, fsext.WriteFile(ts.FS, confPath, conf, 0o644))

	ts.Env["FUZZTRAP_FORMAT"] = "yaml"
	ts.CmdArgs = []string{"fuzztrap", "--config", confPath, "scan", "--format", "text", "--kind", "stop", "guest.bin"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "guest.bin: 1 signal site(s)")
	assert.Contains(t, stdout, "kind=stop")
	assert.NotContains(t, stdout, "kind=start")
}

func TestScanBrokenConfigFile(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	confPath := filepath.Join(ts.Cwd, "config.json")
	require.NoError(t, fsext.WriteFile(ts.FS, confPath, []byte("{ not json"), 0o644))

	ts.CmdArgs = []string{"fuzztrap", "--config", confPath, "scan", "--raw", "guest.bin"}
	ts.ExpectedExitCode = 104 // invalid config
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel,
		"couldn't parse the configuration"))
}

func TestScanLogsToFile(t *testing.T) {
	t.Parallel()

	ts := twoSiteState(t)
	logFilePath := filepath.Join(ts.Cwd, "scan.log")
	ts.CmdArgs = []string{
		"fuzztrap", "-v", "--log-output", "file=" + logFilePath,
		"--log-format", "raw", "scan", "--raw", "guest.bin",
	}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	// The test state hook still catches the debug messages
	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.DebugLevel, "Image scanned"))

	// And they also end up in the log file
	logContents, err := fsext.ReadFile(ts.FS, logFilePath)
	require.NoError(t, err)
	assert.Contains(t, string(logContents), "Image scanned")
}
