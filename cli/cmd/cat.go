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

// catCmd represents the cat command
var catCmd = &cobra.Command{
	Use:   "cat [room...]",
	Short: "Displays the stored history of rooms.",
	Long: `Displays the stored messages of one or more rooms, oldest first.
Without arguments it shows the current room.`,
	Run: func(cmd *cobra.Command, args []string) {
		rooms := args
		if len(rooms) == 0 {
			rooms = []string{resolveRoom(nil)}
		}

		for _, roomID := range rooms {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			entries, err := fetchHistory(ctx, relayClient, roomID, 0, "")
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching history for %s: %v\n", roomID, err)
				continue
			}
			for _, e := range entries {
				fmt.Println(formatHistory(e))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
