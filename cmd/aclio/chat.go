package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aclio/aclio/planclient"
)

func newChatCmd(c *cli) *cobra.Command {
	var (
		goalID   int
		noStream bool
	)
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the coach",
		Long: `Talk to the coach. With a message argument a single reply is printed;
without one an interactive session reads lines from stdin until EOF or "/quit".

Examples:
  aclio chat "I missed my run today"
  aclio chat --goal 2`,
		GroupID: "goals",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var history []planclient.ChatMessage
			send := func(text string) error {
				history = append(history, planclient.ChatMessage{Role: "user", Content: text})
				var reply strings.Builder
				if noStream {
					r, err := svc.Chat(ctx, history, goalID)
					if err != nil {
						return err
					}
					reply.WriteString(r)
					fmt.Fprint(out, r)
				} else {
					deltas, errc, err := svc.ChatStream(ctx, history, goalID)
					if err != nil {
						return err
					}
					for d := range deltas {
						reply.WriteString(d)
						fmt.Fprint(out, d)
					}
					if err := <-errc; err != nil {
						fmt.Fprintln(out)
						return err
					}
				}
				fmt.Fprintln(out)
				history = append(history, planclient.ChatMessage{Role: "assistant", Content: reply.String()})
				return nil
			}

			if len(args) == 1 {
				return send(args[0])
			}
			sc := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !sc.Scan() {
					fmt.Fprintln(out)
					return sc.Err()
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if line == "/quit" {
					return nil
				}
				if err := send(line); err != nil {
					// keep the session alive; the failed turn is dropped
					history = history[:len(history)-1]
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", displayError(err))
				}
			}
		},
	}
	cmd.Flags().IntVar(&goalID, "goal", 0, "goal id to give the coach as context")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for the whole reply")
	return cmd
}

// displayError prefers the user-facing message of a plan client error.
func displayError(err error) string {
	var pe *planclient.Error
	if errors.As(err, &pe) {
		return pe.DisplayMessage()
	}
	return err.Error()
}
