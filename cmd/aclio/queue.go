package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newQueueCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queue",
		Short:   "Inspect changes waiting for a connection",
		GroupID: "system",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List pending offline operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := "offline"
			if svc.Queue.IsConnected() {
				state = "online"
			}
			pending := svc.Queue.Pending()
			fmt.Fprintf(out, "%s, %d pending\n", state, len(pending))
			for _, op := range pending {
				fmt.Fprintf(out, "  %s  %-11s retries=%d  %s\n",
					op.ID.String()[:8], op.Type, op.RetryCount, op.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Process pending operations now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			if !svc.Queue.IsConnected() {
				return fmt.Errorf("proxy at %s is unreachable; %d operations stay queued", c.apiURL, svc.Queue.PendingCount())
			}
			res := svc.Queue.ProcessQueue(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "FLUSHED %d ok, %d failed, %d dropped, %d remaining\n",
				res.Succeeded, res.Failed, res.Dropped, res.Remaining)
			return nil
		},
	}

	var interval time.Duration
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Check the proxy and flush the queue whenever it comes back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s every %s, %d pending (Ctrl-C to stop)\n",
				c.apiURL, interval, svc.Queue.PendingCount())
			if svc.Queue.IsConnected() {
				svc.Queue.ProcessQueue(cmd.Context())
			}
			svc.Monitor(interval).Run(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending\n", svc.Queue.PendingCount())
			return nil
		},
	}
	watch.Flags().DurationVar(&interval, "interval", 30*time.Second, "reachability check interval")

	cmd.AddCommand(status, flush, watch)
	return cmd
}
