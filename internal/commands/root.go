package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcarecon/mcarecon/internal/buildinfo"
	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/logger"
)

const (
	envPrefix         = "MCARECON"
	defaultConfigFile = "mcarecon.yaml"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
// Persistent settings resolve flag first, then MCARECON_* environment.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:     "mcarecon",
		Short:   "Bank statement reconciliation for MCA underwriting",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", defaultConfigFile, "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAnalyzeCommand(v))
	rootCmd.AddCommand(newExtractCommand(v))
	rootCmd.AddCommand(newAuditCommand())

	return rootCmd
}

func newLogger(v *viper.Viper) zerolog.Logger {
	return logger.New(v.GetString("log_level"))
}

// loadConfig reads the configured file. The default path may be absent, in
// which case built-in defaults apply; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	path := v.GetString("config")
	explicit := cmd.Flags().Changed("config") || os.Getenv(envPrefix+"_CONFIG") != ""

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(""), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}
