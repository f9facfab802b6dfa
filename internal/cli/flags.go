package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/taskalloc/internal/infrastructure/config"
)

// RootFlags are persistent flags shared by every allocate command
type RootFlags struct {
	ConfigPath string
	Verbose    bool
}

// Bind registers the flags on cmd
func (f *RootFlags) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.ConfigPath, "config", "", "Configuration file path (default config.yaml, then environment)")
	cmd.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable debug logging")
}

// LoadConfig resolves configuration the same way for every command
func (f RootFlags) LoadConfig() *config.Config {
	var cfg *config.Config
	if f.ConfigPath != "" {
		cfg = config.LoadOrEnvWithPath(f.ConfigPath)
	} else {
		cfg = config.LoadOrEnv()
	}
	if f.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	return cfg
}

// RunFlags are flags for the run command
type RunFlags struct {
	ScenarioPath string
	Seed         int64
}
