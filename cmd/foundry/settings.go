package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/foundry/internal/config"
)

const (
	envPrefix       = "FOUNDRY"
	defaultBaseline = ".foundry/baselines.yaml"
)

// settings are the runtime knobs of one invocation. Flags win over FOUNDRY_*
// environment variables, which win over the manifest's settings block.
type settings struct {
	ConfigPath string `mapstructure:"config"`
	Parallel   int    `mapstructure:"parallel"`
	LogLevel   string `mapstructure:"log-level"`
	Baseline   string `mapstructure:"baseline"`
	MetricsOut string `mapstructure:"metrics-out"`
	DryRun     bool   `mapstructure:"dry-run"`
	TUI        bool   `mapstructure:"tui"`
}

func addSettingsFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", config.DefaultManifestName, "Path to the workspace manifest")
	flags.IntP("parallel", "j", 0, "Maximum number of tasks running at once within a project")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("baseline", "", "Path of the incremental baseline store")
	flags.String("metrics-out", "", "Write Prometheus metrics to this file after the build")
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return settings{}, fmt.Errorf("bind flags: %w", err)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if strings.TrimSpace(s.ConfigPath) == "" {
		s.ConfigPath = config.DefaultManifestName
	}
	if s.Parallel < 0 {
		return settings{}, fmt.Errorf("parallel must be positive, got %d", s.Parallel)
	}
	return s, nil
}

// resolve fills whatever the command line left open from the manifest and
// anchors relative paths at root, the manifest directory.
func (s settings) resolve(m *config.Manifest, root string) settings {
	if s.Parallel == 0 {
		s.Parallel = m.Settings.Parallel
	}
	if s.Parallel == 0 {
		s.Parallel = runtime.NumCPU()
	}

	if s.Baseline == "" {
		s.Baseline = m.Settings.Baseline
	}
	if s.Baseline == "" {
		s.Baseline = defaultBaseline
	}
	if !filepath.IsAbs(s.Baseline) {
		s.Baseline = filepath.Join(root, s.Baseline)
	}
	return s
}
