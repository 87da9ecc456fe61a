package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/fuzztrap/fuzztrap/cmd/state"
	"github.com/fuzztrap/fuzztrap/errext"
	"github.com/fuzztrap/fuzztrap/errext/exitcodes"
	"github.com/fuzztrap/fuzztrap/lib/fsext"
)

// scanConfig is everything the scan command can pick up from the config
// file, the environment and its flags. Invalid null fields mean "not
// set here".
type scanConfig struct {
	Raw      null.Bool   `json:"raw" envconfig:"FUZZTRAP_RAW"`
	Base     null.String `json:"base" envconfig:"FUZZTRAP_BASE"`
	Window   null.Int    `json:"window" envconfig:"FUZZTRAP_WINDOW"`
	AllMagic null.Bool   `json:"allMagic" envconfig:"FUZZTRAP_ALL_MAGIC"`
	Format   null.String `json:"format" envconfig:"FUZZTRAP_FORMAT"`
	Index    null.Int    `json:"index" envconfig:"FUZZTRAP_INDEX"`
	Kind     null.String `json:"kind" envconfig:"FUZZTRAP_KIND"`
}

// Apply overlays the valid fields of cfg on top of c and returns the
// result.
func (c scanConfig) Apply(cfg scanConfig) scanConfig {
	if cfg.Raw.Valid {
		c.Raw = cfg.Raw
	}
	if cfg.Base.Valid {
		c.Base = cfg.Base
	}
	if cfg.Window.Valid {
		c.Window = cfg.Window
	}
	if cfg.AllMagic.Valid {
		c.AllMagic = cfg.AllMagic
	}
	if cfg.Format.Valid {
		c.Format = cfg.Format
	}
	if cfg.Index.Valid {
		c.Index = cfg.Index
	}
	if cfg.Kind.Valid {
		c.Kind = cfg.Kind
	}
	return c
}

func scanConfigFromFlags(flags *pflag.FlagSet) scanConfig {
	return scanConfig{
		Raw:      getNullBool(flags, "raw"),
		Base:     getNullString(flags, "base"),
		Window:   getNullInt64(flags, "window"),
		AllMagic: getNullBool(flags, "all-magic"),
		Format:   getNullString(flags, "format"),
		Index:    getNullInt64(flags, "index"),
		Kind:     getNullString(flags, "kind"),
	}
}

// readDiskConfig reads the JSON config file. A missing file at the
// default path is fine, a missing file the user pointed at explicitly
// is not.
func readDiskConfig(gs *state.GlobalState) (scanConfig, error) {
	// Try to see if the file exists in the supplied filesystem
	if _, err := gs.FS.Stat(gs.Flags.ConfigFilePath); err != nil {
		if os.IsNotExist(err) && gs.Flags.ConfigFilePath == gs.DefaultFlags.ConfigFilePath {
			return scanConfig{}, nil
		}
		return scanConfig{}, fmt.Errorf("couldn't load the configuration from %q: %w", gs.Flags.ConfigFilePath, err)
	}

	data, err := fsext.ReadFile(gs.FS, gs.Flags.ConfigFilePath)
	if err != nil {
		return scanConfig{}, fmt.Errorf("couldn't load the configuration from %q: %w", gs.Flags.ConfigFilePath, err)
	}
	var conf scanConfig
	if err := json.Unmarshal(data, &conf); err != nil {
		return scanConfig{}, fmt.Errorf("couldn't parse the configuration from %q: %w", gs.Flags.ConfigFilePath, err)
	}
	return conf, nil
}

func readEnvConfig(envMap map[string]string) (scanConfig, error) {
	var conf scanConfig
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := envMap[key]
		return v, ok
	})
	return conf, err
}

// getConsolidatedConfig resolves the scan configuration in order:
// defaults, config file, environment, CLI flags.
func getConsolidatedConfig(gs *state.GlobalState, cliConf scanConfig) (scanConfig, error) {
	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return scanConfig{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	envConf, err := readEnvConfig(gs.Env)
	if err != nil {
		return scanConfig{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return fileConf.Apply(envConf).Apply(cliConf), nil
}
