package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aclio/aclio/planclient"
)

func newDoctorCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Short:   "Check the local store and the proxy",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var (
				storeErr  error
				health    planclient.Health
				healthErr error
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				s, err := c.openStore()
				if err != nil {
					storeErr = err
					return nil
				}
				storeErr = s.Ping(gctx)
				return nil
			})
			g.Go(func() error {
				health, healthErr = c.client().Health(gctx)
				return nil
			})
			_ = g.Wait()

			out := cmd.OutOrStdout()
			failed := false
			if storeErr != nil {
				failed = true
				fmt.Fprintf(out, "store    FAIL  %s: %v\n", c.storeURI, storeErr)
			} else {
				fmt.Fprintf(out, "store    ok    %s\n", c.storeURI)
			}
			switch {
			case healthErr != nil:
				failed = true
				fmt.Fprintf(out, "proxy    FAIL  %s: %s\n", c.apiURL, displayError(healthErr))
			case !health.APIKeyConfigured:
				failed = true
				fmt.Fprintf(out, "proxy    WARN  %s: no API key configured on the server\n", c.apiURL)
			default:
				fmt.Fprintf(out, "proxy    ok    %s\n", c.apiURL)
			}
			if failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}
