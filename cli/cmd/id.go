/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Prints user configuration information.",
	Long:  `Prints the display name, the current room and the server this client talks to.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DisplayName: %s\n", viper.GetString(displayNameKey))
		fmt.Printf("Room: %s\n", viper.GetString(currentRoomKey))
		fmt.Printf("Server: %s\n", grpcServerAddress)
	},
}

func init() {
	rootCmd.AddCommand(idCmd)
}
