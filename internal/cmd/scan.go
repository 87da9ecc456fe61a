package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/fuzztrap/fuzztrap/cmd/state"
	"github.com/fuzztrap/fuzztrap/errext"
	"github.com/fuzztrap/fuzztrap/errext/exitcodes"
	"github.com/fuzztrap/fuzztrap/internal/scan"
	"github.com/fuzztrap/fuzztrap/magic"
)

type scanCmd struct {
	gs *state.GlobalState
}

func (c *scanCmd) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Bool("raw", false, "treat the images as flat binary blobs instead of ELFs")
	flags.String("base", "", "load address of a raw image, e.g. 0x80000000")
	flags.Int64("window", scan.DefaultWindow, "how many instructions to look back for the site index")
	flags.Bool("all-magic", false, "also report sentinels carrying reserved magic numbers")
	flags.String("format", "text", "report format (choices: text, json, yaml)")
	flags.Int64("index", 0, "only report sites with this index (sites whose index could not be recovered never match)")
	flags.String("kind", "", "only report sites of this kind, e.g. 'start', 'stop', 'assert'")
	return flags
}

// pointFilter is the site filter built from --kind and --index.
type pointFilter struct {
	kind  *magic.Kind
	index null.Int
}

func (f pointFilter) match(p scan.Point) bool {
	if f.kind != nil && p.Kind != *f.kind {
		return false
	}
	if f.index.Valid && (!p.Index.Valid || p.Index.Int64 != f.index.Int64) {
		return false
	}
	return true
}

func (f pointFilter) apply(points []scan.Point) []scan.Point {
	if f.kind == nil && !f.index.Valid {
		return points
	}
	filtered := make([]scan.Point, 0, len(points))
	for _, p := range points {
		if f.match(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func scanOptions(conf scanConfig) (scan.Options, error) {
	opts := scan.Options{
		Raw:      conf.Raw.Bool,
		AllMagic: conf.AllMagic.Bool,
		Window:   int(conf.Window.Int64),
	}
	if conf.Window.Valid && conf.Window.Int64 < 0 {
		return scan.Options{}, fmt.Errorf("the lookback window cannot be negative, got %d", conf.Window.Int64)
	}
	if conf.Base.Valid && conf.Base.String != "" {
		if !opts.Raw {
			return scan.Options{}, errors.New("--base only applies to raw images, pass --raw as well")
		}
		base, err := strconv.ParseUint(conf.Base.String, 0, 64)
		if err != nil {
			return scan.Options{}, fmt.Errorf("could not parse base address %q: %w", conf.Base.String, err)
		}
		opts.Base = base
	}
	return opts, nil
}

func scanFilter(conf scanConfig) (pointFilter, error) {
	filter := pointFilter{index: conf.Index}
	if conf.Kind.Valid && conf.Kind.String != "" {
		kind, err := magic.ParseKind(conf.Kind.String)
		if err != nil {
			if n, perr := strconv.ParseUint(conf.Kind.String, 0, 8); perr == nil && n <= magic.MaxMagicNumber {
				kind = magic.Kind(n)
			} else {
				return pointFilter{}, err
			}
		}
		filter.kind = &kind
	}
	return filter, nil
}

func (c *scanCmd) run(cmd *cobra.Command, args []string) error {
	conf, err := getConsolidatedConfig(c.gs, scanConfigFromFlags(cmd.Flags()))
	if err != nil {
		return err
	}

	opts, err := scanOptions(conf)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	filter, err := scanFilter(conf)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	format := "text"
	if conf.Format.Valid && conf.Format.String != "" {
		format = conf.Format.String
	}
	switch format {
	case "text", "json", "yaml":
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("unknown report format %q, expected text, json or yaml", format),
			exitcodes.InvalidConfig,
		)
	}

	pwd, err := c.gs.Getwd()
	if err != nil {
		return err
	}

	gctx, cancel := context.WithCancel(c.gs.Ctx)
	defer cancel()
	stop := handleAbortSignals(c.gs, func(sig os.Signal) {
		c.gs.Logger.WithField("sig", sig).Debug("Stopping the scan in response to a signal...")
		cancel()
	}, nil)
	defer stop()

	results := make([][]scan.Point, len(args))
	g, ctx := errgroup.WithContext(gctx)
	for i, path := range args {
		i, path := i, path
		fullPath := path
		if !filepath.IsAbs(fullPath) {
			fullPath = filepath.Join(pwd, fullPath)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, closeSrc, err := scan.Open(c.gs.FS, fullPath)
			if err != nil {
				return fmt.Errorf("could not open %s: %w", path, err)
			}
			defer func() { _ = closeSrc() }()

			points, err := scan.Scan(src, opts)
			if err != nil {
				return fmt.Errorf("could not scan %s: %w", path, err)
			}
			results[i] = filter.apply(points)
			c.gs.Logger.WithFields(logrus.Fields{
				"image": path, "sites": len(results[i]),
			}).Debug("Image scanned")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return errext.WithExitCodeIfNone(err, exitcodes.ExternalAbort)
		}
		return errext.WithExitCodeIfNone(err, exitcodes.ScanFailed)
	}

	total := 0
	for _, points := range results {
		total += len(points)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(c.gs.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(buildScanReport(args, results)); err != nil {
			return err
		}
	case "yaml":
		enc := yaml.NewEncoder(c.gs.Stdout)
		if err := enc.Encode(buildScanReport(args, results)); err != nil {
			_ = enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		c.printText(args, results, total)
	}

	if total == 0 {
		return errext.WithExitCodeIfNone(errors.New("no signal sites found"), exitcodes.NoSignalSites)
	}
	return nil
}

// scanReport is the machine readable report shape.
type scanReport struct {
	Images []imageReport `json:"images" yaml:"images"`
}

type imageReport struct {
	Path   string        `json:"path" yaml:"path"`
	Points []pointReport `json:"points" yaml:"points"`
}

type pointReport struct {
	Addr    string `json:"addr" yaml:"addr"`
	Section string `json:"section" yaml:"section"`
	Word    string `json:"word" yaml:"word"`
	Magic   uint8  `json:"magic" yaml:"magic"`
	Kind    string `json:"kind" yaml:"kind"`
	Index   *int64 `json:"index" yaml:"index"`
}

func buildScanReport(paths []string, results [][]scan.Point) scanReport {
	report := scanReport{Images: make([]imageReport, 0, len(paths))}
	for i, path := range paths {
		img := imageReport{Path: path, Points: make([]pointReport, 0, len(results[i]))}
		for _, p := range results[i] {
			pr := pointReport{
				Addr:    fmt.Sprintf("%#x", p.Addr),
				Section: p.Section,
				Word:    fmt.Sprintf("%#010x", p.Raw),
				Magic:   uint8(p.Kind),
				Kind:    p.Kind.String(),
			}
			if p.Index.Valid {
				idx := p.Index.Int64
				pr.Index = &idx
			}
			img.Points = append(img.Points, pr)
		}
		report.Images = append(report.Images, img)
	}
	return report
}

func (c *scanCmd) printText(paths []string, results [][]scan.Point, total int) {
	noColor := c.gs.Flags.NoColor || !c.gs.Stdout.IsTTY
	startColor := color.New(color.FgGreen)
	stopColor := color.New(color.FgCyan)
	assertColor := color.New(color.FgRed)
	unknownColor := color.New(color.FgYellow)
	if noColor {
		for _, col := range []*color.Color{startColor, stopColor, assertColor, unknownColor} {
			col.DisableColor()
		}
	}
	kindColor := func(k magic.Kind) *color.Color {
		switch {
		case k.IsStart():
			return startColor
		case k == magic.KindStop:
			return stopColor
		case k == magic.KindAssert:
			return assertColor
		default:
			return unknownColor
		}
	}

	width := c.gs.Stdout.TermWidth()
	if width > 80 {
		width = 80
	}
	divider := strings.Repeat("-", width)

	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(c.gs.Stdout, divider)
		}
		fmt.Fprintf(c.gs.Stdout, "%s: %d signal site(s)\n", path, len(results[i]))
		if c.gs.Flags.Quiet {
			continue
		}
		for _, p := range results[i] {
			index := "-"
			if p.Index.Valid {
				index = fmt.Sprintf("%#06x", uint16(p.Index.Int64))
			}
			kind := kindColor(p.Kind).Sprintf("%-31s", p.Kind)
			fmt.Fprintf(c.gs.Stdout, "  %#010x  %-10s  word=%#010x  kind=%s  index=%s\n",
				p.Addr, p.Section, p.Raw, kind, index)
		}
	}
	fmt.Fprintf(c.gs.Stdout, "\nfound %d signal site(s) in %d image(s)\n", total, len(paths))
}

func getCmdScan(gs *state.GlobalState) *cobra.Command {
	c := &scanCmd{gs: gs}

	exampleText := getExampleText(gs, `
  # Scan a guest ELF image for signal sites
  $ {{.}} scan build/guest.elf

  # Scan a flat firmware blob loaded at 0x80000000
  $ {{.}} scan --raw --base 0x80000000 firmware.bin

  # Machine readable report for two images
  $ {{.}} scan --format json guest-a.elf guest-b.elf.gz

  # Only start sites with index 3
  $ {{.}} scan --kind start --index 3 guest.elf`[1:])

	scanCmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Scan built guest images for signal sites",
		Long: `Scan built RISC-V guest images for compiled-in signal sites.

ELF images are scanned section by section, executable sections only;
flat binary blobs are scanned whole with --raw. Gzip compressed images
are inflated transparently. For every sentinel found, the site index is
recovered when the instructions loading it are statically visible.`,
		Example: exampleText,
		Args:    cobra.MinimumNArgs(1),
		RunE:    c.run,
	}

	scanCmd.Flags().AddFlagSet(c.flagSet())
	return scanCmd
}
