package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStepCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "step",
		Short:   "Work on the steps of a goal",
		GroupID: "goals",
	}
	cmd.AddCommand(newStepToggleCmd(c), newStepExpandCmd(c), newStepDoCmd(c))
	return cmd
}

// goalStepArgs parses "<goal-id> <step-id>".
func goalStepArgs(args []string) (int, int, error) {
	goalID, err := parseID(args[0], "goal")
	if err != nil {
		return 0, 0, err
	}
	stepID, err := parseID(args[1], "step")
	if err != nil {
		return 0, 0, err
	}
	return goalID, stepID, nil
}

func newStepToggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <goal-id> <step-id>",
		Aliases: []string{"done"},
		Short:   "Mark a step done, or undo it",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, stepID, err := goalStepArgs(args)
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ToggleStep(cmd.Context(), goalID, stepID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Completed {
				fmt.Fprintf(out, "DONE %d.%d\n", goalID, stepID)
			} else {
				fmt.Fprintf(out, "UNDONE %d.%d\n", goalID, stepID)
			}
			printResult(out, res.GoalResult)
			if res.GoalCompleted {
				fmt.Fprintf(out, "Goal complete: %s\n", res.Goal.Name)
			}
			return nil
		},
	}
}

func newStepExpandCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <goal-id> <step-id>",
		Short: "Get a detailed guide and resources for a step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, stepID, err := goalStepArgs(args)
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			exp, err := svc.ExpandStep(cmd.Context(), goalID, stepID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, exp.DetailedGuide)
			if len(exp.Resources) > 0 {
				fmt.Fprintln(out, "\nResources:")
				for _, r := range exp.Resources {
					fmt.Fprintf(out, "  - %s (%s)", r.Name, r.Type)
					if r.Cost != "" {
						fmt.Fprintf(out, " %s", r.Cost)
					}
					if r.URL != "" {
						fmt.Fprintf(out, " %s", r.URL)
					}
					fmt.Fprintln(out)
				}
			}
			if len(exp.Tips) > 0 {
				fmt.Fprintln(out, "\nTips:")
				for _, tip := range exp.Tips {
					fmt.Fprintf(out, "  - %s\n", tip)
				}
			}
			if exp.SearchQuery != "" {
				fmt.Fprintf(out, "\nSearch: %s\n", exp.SearchQuery)
			}
			return nil
		},
	}
}

func newStepDoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "do <goal-id> <step-id>",
		Short: "Let the coach do a step for you",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, stepID, err := goalStepArgs(args)
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.DoItForMe(cmd.Context(), goalID, stepID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
