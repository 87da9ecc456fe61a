// Package cmd contains the public entry points of the fuzztrap CLI. The
// actual command implementations live in internal/cmd; this package only
// re-exports what embedders and main.main() need.
package cmd

import (
	"github.com/fuzztrap/fuzztrap/cmd/state"
	"github.com/fuzztrap/fuzztrap/internal/cmd"
)

// Execute runs the fuzztrap command with a default global state.
// This is called by main.main().
func Execute() {
	cmd.Execute()
}

// ExecuteWithGlobalState runs the fuzztrap command with an existing global
// state, which makes it possible to override the environment, the filesystem
// and all process inputs and outputs.
func ExecuteWithGlobalState(gs *state.GlobalState) {
	cmd.ExecuteWithGlobalState(gs)
}
