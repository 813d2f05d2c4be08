package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/nextstep/internal/config"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "nextstep",
	Short:         "Local career roadmap, skills and progress tracker",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(profileCmd, onboardingCmd, xpCmd, skillCmd, roadmapCmd, badgeCmd)
	rootCmd.AddCommand(resetCmd, accountCmd, configCmd)
}

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if err := config.LoadDotEnv(); err != nil {
		printWarning("%v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
