package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chatCmd = &cobra.Command{
	Use:   "chat [room]",
	Short: "Joins a room in a tview-based chat interface",
	Long: `Joins a room over the Connect stream. History is shown first, then live
messages. Type at the bottom and press Enter to send.

  /switch <room>  move to another room without reconnecting
  /quit           leave the room`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roomID := resolveRoom(args)
		userName, _ := cmd.Flags().GetString("name")
		if userName == "" {
			userName = viper.GetString(displayNameKey)
		}
		if strings.TrimSpace(userName) == "" {
			fmt.Println("Error: display name is not set. Run 'config <name>' or use the -n flag.")
			return
		}

		if err := runChatUITview(relayClient, userName, roomID); err != nil {
			fmt.Fprintf(os.Stderr, "Chat UI error: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("name", "n", "", "Your name for the chat session (optional, defaults to display_name in config)")
}

func runChatUITview(client relaypb.RelayClient, userName string, roomID string) error {
	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true).
		ScrollToEnd()

	statusBar := tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(tcell.ColorYellow)

	inputField := tview.NewInputField().
		SetLabel(userName + " ❯❯ ").
		SetFieldWidth(0).
		SetAcceptanceFunc(tview.InputFieldMaxLength(1024))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, false).
		AddItem(statusBar, 1, 0, false).
		AddItem(inputField, 1, 0, true)

	app.SetRoot(flex, true).SetFocus(inputField)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := openStream(ctx, client)
	if err != nil {
		return err
	}
	if err := stream.join(userName, roomID); err != nil {
		return fmt.Errorf("failed to send join message: %w", err)
	}

	view := newChatView(roomID)
	statusBar.SetText(tview.Escape(view.status()))
	fmt.Fprintf(textView, "[green]Welcome to %s! You are %s. (/quit or Ctrl+C to exit)\n", tview.Escape(roomID), tview.Escape(userName))

	// view is only touched from the UI goroutine.
	go func() {
		for {
			frame, err := stream.recv()
			if errors.Is(err, relaypb.ErrMalformedFrame) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				app.QueueUpdateDraw(func() {
					if errors.Is(err, io.EOF) {
						fmt.Fprintln(textView, "[red]Stream closed by server.")
					} else {
						fmt.Fprintf(textView, "[red]Error receiving message: %v\n", err)
					}
				})
				return
			}
			app.QueueUpdateDraw(func() {
				lines, err := view.apply(frame)
				if err != nil {
					fmt.Fprintf(textView, "[red]Bad %s frame: %v\n", frame.Event, err)
					return
				}
				for _, line := range lines {
					fmt.Fprintln(textView, "[white]"+tview.Escape(line))
				}
				statusBar.SetText(tview.Escape(view.status()))
				textView.ScrollToEnd()
			})
		}
	}()

	quit := func() {
		_ = stream.leave()
		cancel()
		app.Stop()
	}

	typing := false
	setTyping := func(on bool) {
		if typing == on {
			return
		}
		typing = on
		_ = stream.typing(on)
	}

	inputField.SetChangedFunc(func(text string) {
		setTyping(strings.TrimSpace(text) != "" && !strings.HasPrefix(text, "/"))
	})

	inputField.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(inputField.GetText())
		inputField.SetText("")
		setTyping(false)
		if text == "" {
			return
		}

		switch {
		case text == "/quit":
			quit()
			return
		case strings.HasPrefix(text, "/switch "):
			next := strings.TrimSpace(strings.TrimPrefix(text, "/switch "))
			if next == "" || next == view.room {
				return
			}
			if err := stream.switchRoom(next); err != nil {
				fmt.Fprintf(textView, "[red]Failed to switch room: %v\n", err)
				return
			}
			view.room = next
			statusBar.SetText(tview.Escape(view.status()))
			return
		}

		if err := stream.message(text); err != nil {
			fmt.Fprintf(textView, "[red]Failed to send message: %v\n", err)
		}
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			quit()
			return nil
		}
		return event
	})

	if err := app.Run(); err != nil {
		cancel()
		return err
	}
	return nil
}
