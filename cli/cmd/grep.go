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

// grepCmd represents the grep command
var grepCmd = &cobra.Command{
	Use:   "grep <pattern> [room]",
	Short: "Searches a room's history for a regular expression.",
	Long:  `Prints the stored messages of a room whose text matches the given regular expression.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := args[0]
		roomID := resolveRoom(args[1:])

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		entries, err := fetchHistory(ctx, relayClient, roomID, 0, pattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching '%s' in %s: %v\n", pattern, roomID, err)
			return
		}
		for _, e := range entries {
			fmt.Println(formatHistory(e))
		}
	},
}

func init() {
	rootCmd.AddCommand(grepCmd)
}
