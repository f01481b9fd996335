// Package commands implements the CLI commands for pubharvest.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pubharvest/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "pubharvest",
	Short: "Harvest publication metadata from lazily-loaded listings",
	Long: `Pubharvest walks the ECB research publication listings in a headless
browser, scrolls every lazily-loaded block into view and turns each entry
into a bibliographic record (title, abstract, authors, link, date).

Examples:
  # Harvest every default listing to stdout
  pubharvest crawl

  # Only publications since 2019, written as JSON lines
  pubharvest crawl --since 2019-01-01 --format jsonl -o records.jsonl

  # A single listing, showing the browser window
  pubharvest crawl -e /pub/research/working-papers/html/index.en.html --headless=false`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.pubharvest.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("json-log", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("json_log", rootCmd.PersistentFlags().Lookup("json-log"))
}

func initConfig() {
	configure(viper.GetViper())
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logError("reading config: %v", err)
		}
	}
}

// configure points v at the config file and environment.
func configure(v *viper.Viper) {
	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".pubharvest")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PUBHARVEST")
	v.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
