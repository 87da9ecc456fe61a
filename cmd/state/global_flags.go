package state

import "path/filepath"

// GlobalFlags contains global config values that apply for all fuzztrap
// sub-commands.
type GlobalFlags struct {
	ConfigFilePath string
	Quiet          bool
	NoColor        bool
	LogOutput      string
	LogFormat      string
	Verbose        bool
}

// GetDefaultFlags returns the default global flags.
func GetDefaultFlags(homeDir string) GlobalFlags {
	return GlobalFlags{
		ConfigFilePath: filepath.Join(homeDir, "fuzztrap", defaultConfigFileName),
		LogOutput:      "stderr",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalFlags, env map[string]string) GlobalFlags {
	result := defaultFlags

	if val, ok := env["FUZZTRAP_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["FUZZTRAP_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["FUZZTRAP_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if env["FUZZTRAP_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable
	// the color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
