package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "linkup",
	Short:         "LinkUp campus marketplace API",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "linkup.yml", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
