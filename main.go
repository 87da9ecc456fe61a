// Package main contains the executable entry point of fuzztrap.
package main

import (
	"github.com/fuzztrap/fuzztrap/cmd"
)

func main() {
	cmd.Execute()
}
