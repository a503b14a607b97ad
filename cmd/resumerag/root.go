package main

import (
	"github.com/spf13/cobra"
)

const appName = "resumerag"

var (
	// Used for flags.
	cfgFile   string
	debugMode bool
	jsonLogs  bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "resumerag indexes resumes and matches them against job descriptions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is config.yaml in current directory)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "j", false, "json format for logging")
}
