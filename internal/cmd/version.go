package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuzztrap/fuzztrap/cmd/state"
	"github.com/fuzztrap/fuzztrap/internal/build"
)

func versionString() string {
	return build.Version
}

func fullVersion() string {
	return build.FullVersion()
}

func getCmdVersion(gs *state.GlobalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  "Show the application version and exit.",
		RunE: func(*cobra.Command, []string) error {
			printToStdout(gs, fmt.Sprintf("%s v%s\n", gs.BinaryName, fullVersion()))
			return nil
		},
	}
}
