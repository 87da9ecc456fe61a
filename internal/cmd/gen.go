package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fuzztrap/fuzztrap/cmd/state"
	"github.com/fuzztrap/fuzztrap/errext"
	"github.com/fuzztrap/fuzztrap/errext/exitcodes"
	"github.com/fuzztrap/fuzztrap/internal/codegen"
	"github.com/fuzztrap/fuzztrap/lib/fsext"
)

type genCmd struct {
	gs *state.GlobalState

	output         string
	arch           string
	defaultIndex   uint16
	manifestFormat string
	overwriteFiles bool
}

func (c *genCmd) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&c.output, "output", "o", "", "write to a file instead of stdout")
	flags.BoolVarP(&c.overwriteFiles, "force", "f", false, "overwrite existing files")
	flags.StringVar(&c.arch, "arch", codegen.ArchRV64,
		"guest architecture the generated code targets (choices: riscv32, riscv64)")
	flags.Uint16Var(&c.defaultIndex, "default-index", 0,
		"site index used by the generated macros that do not take one")
	flags.StringVar(&c.manifestFormat, "format", "json", "manifest format (choices: json, yaml)")
	return flags
}

func (c *genCmd) render(w *bytes.Buffer, target string) error {
	args := codegen.Args{Arch: c.arch, DefaultIndex: c.defaultIndex}

	if target == codegen.TargetManifest {
		m, err := codegen.NewManifest(args)
		if err != nil {
			return err
		}
		switch c.manifestFormat {
		case "json":
			return m.WriteJSON(w)
		case "yaml":
			return m.WriteYAML(w)
		default:
			return fmt.Errorf("unknown manifest format %q, expected json or yaml", c.manifestFormat)
		}
	}

	tm, err := codegen.NewTemplateManager()
	if err != nil {
		return fmt.Errorf("error initializing template manager: %w", err)
	}
	return tm.Render(w, target, args)
}

func (c *genCmd) run(_ *cobra.Command, args []string) (err error) {
	target := args[0]

	// Render to a buffer first, so a failed render does not leave a
	// truncated file behind.
	var buf bytes.Buffer
	if err := c.render(&buf, target); err != nil {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("could not generate %s: %w", target, err), exitcodes.CodegenFailed,
		)
	}

	if c.output == "" {
		printToStdout(c.gs, buf.String())
		return nil
	}

	fileExists, err := fsext.Exists(c.gs.FS, c.output)
	if err != nil {
		return err
	}
	if fileExists && !c.overwriteFiles {
		return fmt.Errorf("%s already exists. Use the `--force` flag to overwrite it", c.output)
	}

	fd, err := c.gs.FS.Create(c.output)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := fd.Close(); cerr != nil {
			if _, werr := fmt.Fprintf(c.gs.Stderr, "error closing file: %v\n", cerr); werr != nil {
				err = fmt.Errorf("error writing error message to stderr: %w", werr)
			} else {
				err = cerr
			}
		}
	}()

	if _, err := fd.Write(buf.Bytes()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(c.gs.Stdout, "Generated %s: %s\n", target, c.output); err != nil {
		return err
	}

	return nil
}

func getCmdGen(gs *state.GlobalState) *cobra.Command {
	c := &genCmd{gs: gs}

	exampleText := getExampleText(gs, `
  # Print the C macro header for a 64-bit guest
  $ {{.}} gen c-header

  # Write the GNU as include for a 32-bit guest
  $ {{.}} gen gas --arch riscv32 -o fuzztrap.S

  # Emit the protocol manifest as YAML
  $ {{.}} gen manifest --format yaml`[1:])

	genCmd := &cobra.Command{
		Use:   "gen <" + strings.Join(codegen.Targets(), "|") + ">",
		Short: "Generate signaling glue for foreign toolchains",
		Long: `Generate the compiled-in signaling glue for targets built outside Go:
a C macro header, a GNU as macro include, or a machine readable protocol
manifest for monitor-side tooling. All outputs carry the same sentinel
encodings the harness package emits.`,
		Example:   exampleText,
		Args:      exactArgsWithMsg(1, "the generation target is required"),
		ValidArgs: codegen.Targets(),
		RunE:      c.run,
	}

	genCmd.Flags().AddFlagSet(c.flagSet())
	return genCmd
}
