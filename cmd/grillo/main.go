package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/grillo/cmd/grillo/cmds"
)

var rootCmd = &cobra.Command{
	Use:   "grillo",
	Short: "grillo is a chat client for remote agentic workflows",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelString, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		level, err := zerolog.ParseLevel(levelString)
		if err != nil {
			return err
		}
		log.Logger = log.Logger.Level(level)
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Path to a yaml settings file")

	rootCmd.AddCommand(cmds.NewChatCommand())
	rootCmd.AddCommand(cmds.NewUploadCommand())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
