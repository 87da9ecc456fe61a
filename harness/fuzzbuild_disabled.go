//go:build !fuzzing_unsafe

package harness

// FuzzingBuildModeUnsafeForProduction is false unless the binary was
// built with the fuzzing_unsafe build tag. See fuzzbuild_enabled.go.
const FuzzingBuildModeUnsafeForProduction = false
