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
	"github.com/spf13/viper"
)

var echoCmd = &cobra.Command{
	Use:   "echo <text> [room]",
	Short: "Posts a single message to a room.",
	Long: `Joins the room, posts the text and leaves again. Members of the room see
the join, the message and the leave.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		text := args[0]
		roomID := resolveRoom(args[1:])
		userName := viper.GetString(displayNameKey)
		if userName == "" {
			fmt.Println("Error: display name is not set. Run 'config <name>' first.")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		stream, err := openStream(ctx, relayClient)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if err := stream.join(userName, roomID); err != nil {
			fmt.Fprintf(os.Stderr, "Error joining %s: %v\n", roomID, err)
			return
		}
		if err := stream.message(text); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to %s: %v\n", roomID, err)
			return
		}
		if err := stream.leave(); err != nil {
			fmt.Fprintf(os.Stderr, "Error leaving %s: %v\n", roomID, err)
			return
		}
		if err := stream.drain(); err != nil {
			fmt.Fprintf(os.Stderr, "Error waiting for %s: %v\n", roomID, err)
			return
		}
		fmt.Printf("Text written to %s\n", roomID)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
}
