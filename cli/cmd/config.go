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

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [new_display_name]",
	Short: "Gets or sets the display name.",
	Long: `Manages configuration for the chatrelay client.
If called without arguments, it displays the current display name.
If called with an argument, it sets the display name to the provided value.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Printf("Display Name: %s\n", viper.GetString(displayNameKey))
			return
		}

		name := strings.TrimSpace(args[0])
		if name == "" {
			fmt.Fprintln(os.Stderr, "Error: display name must not be empty")
			return
		}
		viper.Set(displayNameKey, name)
		if err := saveConfig(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Printf("Display name set to: %s\n", name)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
