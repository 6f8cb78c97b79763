/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	follow    bool
	tailLines int
)

// tailCmd represents the tail command
var tailCmd = &cobra.Command{
	Use:   "tail [-f] [-n lines] [room]",
	Short: "Displays the latest messages of a room.",
	Long: `Displays the most recent messages of a room. With -f it joins the room
and keeps printing messages as they arrive until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roomID := resolveRoom(args)

		if !follow {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()

			entries, err := fetchHistory(ctx, relayClient, roomID, tailLines, "")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching history for %s: %v\n", roomID, err)
				return
			}
			for _, e := range entries {
				fmt.Println(formatHistory(e))
			}
			return
		}

		userName := viper.GetString(displayNameKey)
		if userName == "" {
			userName = "tail"
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		if err := followRoom(ctx, relayClient, userName, roomID, tailLines); err != nil {
			fmt.Fprintf(os.Stderr, "Error following %s: %v\n", roomID, err)
		}
	},
}

// followRoom joins roomID and prints the last lines of history followed by
// every chat message until ctx ends.
func followRoom(ctx context.Context, client relaypb.RelayClient, userName, roomID string, lines int) error {
	stream, err := openStream(ctx, client)
	if err != nil {
		return err
	}
	if err := stream.join(userName, roomID); err != nil {
		return err
	}

	view := newChatView(roomID)
	for {
		frame, err := stream.recv()
		if errors.Is(err, relaypb.ErrMalformedFrame) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		out, err := view.apply(frame)
		if err != nil {
			continue
		}
		if frame.Event == "previous_messages" && lines > 0 && len(out) > lines {
			out = out[len(out)-lines:]
		}
		for _, line := range out {
			fmt.Println(line)
		}
	}
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new messages")
	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of messages to show")
}
