// Package exitcodes contains the constants representing possible fuzztrap exit error codes.
package exitcodes

// ExitCode is just a type representing a process exit code for fuzztrap
type ExitCode uint8

// list of exit codes used by fuzztrap
const (
	InvalidConfig ExitCode = 104
	ExternalAbort ExitCode = 105
	GoPanic       ExitCode = 109
	ScanFailed    ExitCode = 110
	NoSignalSites ExitCode = 111
	CodegenFailed ExitCode = 112
)
