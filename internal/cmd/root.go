// Package cmd implements the crewpm command line.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/crewpm/internal/config"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "crewpm",
	Short: "Run a request through a generated project team",
	Long: `crewpm turns a free-text request into a finished deliverable.

A PM team interprets the request and plans the work as phases. Each phase is
produced, reviewed and judged by its own team until the PM accepts it, and
the accepted artifacts are merged into one deliverable. Every artifact is
written under the data directory.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/crewpm/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding run artifacts")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("artifacts.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	// Defaults first so they apply even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("CREWPM")
	// CREWPM_GENERATOR_PROVIDER overrides generator.provider
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine
	_ = viper.ReadInConfig()
}
