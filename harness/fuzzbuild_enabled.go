//go:build fuzzing_unsafe

package harness

// FuzzingBuildModeUnsafeForProduction reports whether the binary was
// built with the fuzzing_unsafe build tag. It mirrors the libFuzzer
// build-mode convention (https://llvm.org/docs/LibFuzzer.html) so that
// sources shared between fuzzing and production builds can keep
// fuzzing-only code, like weakened checksums or disabled rate limits,
// out of production.
const FuzzingBuildModeUnsafeForProduction = true
