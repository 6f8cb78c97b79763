/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Lists active rooms and who is in them.",
	Long:  `Lists every room that currently has members, with the members in join order.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		rooms, err := fetchRooms(ctx, relayClient)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error calling ListRooms: %v\n", err)
			return
		}
		if len(rooms) == 0 {
			fmt.Println("No active rooms.")
			return
		}
		for _, room := range rooms {
			fmt.Printf("%-20s %3d  %s\n", room.RoomID, len(room.Users), formatUsers(room.Users))
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
