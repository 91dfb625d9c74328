// Command posthistgen generates synthetic military personnel-record
// corpora and scores their ground-truth disambiguation difficulty, per
// the two process-surface entry points named in spec.md §6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgonzalez12/posthist/internal/config"
	"github.com/rgonzalez12/posthist/internal/log"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "posthistgen",
	Short: "Synthetic military personnel-record generator",
	Long: `posthistgen builds synthetic personnel-record corpora with a
three-layer difficulty model (situational vocabulary, clutter, and
confounders) and a ground-truth disambiguation difficulty score per
soldier.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Initialize()
		config.LoadDotEnv(envFile)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env overlay (default .env)")
	rootCmd.AddCommand(generateCmd, scoreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
