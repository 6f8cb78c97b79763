/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pwdCmd = &cobra.Command{
	Use:   "pwd",
	Short: "Prints the current room.",
	Long:  `Prints the room that commands use when no room is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(viper.GetString(currentRoomKey))
	},
}

func init() {
	rootCmd.AddCommand(pwdCmd)
}
