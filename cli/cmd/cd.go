/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cdCmd = &cobra.Command{
	Use:   "cd [room]",
	Short: "Changes the current room.",
	Long: `Changes the room that cat, tail, grep, echo and chat use when no room is
given. Without an argument it goes back to lobby. The choice is stored in the
configuration file.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "lobby"
		if len(args) > 0 {
			target = strings.TrimSpace(args[0])
		}
		if target == "" {
			fmt.Fprintln(os.Stderr, "Error: room name must not be empty")
			return
		}

		viper.Set(currentRoomKey, target)
		if err := saveConfig(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cdCmd)
}
