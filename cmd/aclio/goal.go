package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aclio/aclio/app"
	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/planclient"
)

func newGoalCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals", "g"},
		Short:   "Create, inspect and extend goals",
		GroupID: "goals",
	}
	cmd.AddCommand(
		newGoalNewCmd(c),
		newGoalListCmd(c),
		newGoalShowCmd(c),
		newGoalDeleteCmd(c),
		newGoalExtendCmd(c),
	)
	return cmd
}

func newGoalNewCmd(c *cli) *cobra.Command {
	var (
		noPlan    bool
		steps     []string
		due       string
		location  string
		category  string
		iconColor string
		extra     string
	)
	cmd := &cobra.Command{
		Use:   "new <goal>",
		Short: "Plan a goal with the AI coach and save it",
		Long: `Plan a goal with the AI coach and save it.

Examples:
  aclio goal new "Run a half marathon" --due 2026-04-01
  aclio goal new "Learn Spanish" --context "30 minutes a day"
  aclio goal new "Paint the fence" --no-plan --step "Buy paint" --step "Sand boards"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}

			in := app.NewGoal{
				Name:      args[0],
				Category:  category,
				IconColor: models.IconColor(iconColor),
			}
			if due != "" {
				t, err := time.ParseInLocation("2006-01-02", due, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --due %q: want YYYY-MM-DD", due)
				}
				in.DueDate = &t
			}

			if noPlan || len(steps) > 0 {
				for i, title := range steps {
					in.Steps = append(in.Steps, models.Step{ID: i + 1, Title: title})
				}
			} else {
				plan, err := svc.PlanGoal(ctx, planclient.StepsRequest{
					Goal:              args[0],
					Location:          location,
					AdditionalContext: extra,
				})
				if err != nil {
					return err
				}
				in.Steps = plan.Steps
				if in.Category == "" {
					in.Category = plan.Category
				}
			}

			res, err := svc.CreateGoal(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CREATED %d %s\n", res.Goal.ID, res.Goal.Name)
			printSteps(out, res.Goal)
			printResult(out, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPlan, "no-plan", false, "skip the AI plan")
	cmd.Flags().StringArrayVar(&steps, "step", nil, "add a step by title (repeatable, implies --no-plan)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&location, "location", "", "where you are, for local suggestions")
	cmd.Flags().StringVar(&category, "category", "", "goal category")
	cmd.Flags().StringVar(&iconColor, "color", "", "card colour (blue, orange, green, purple)")
	cmd.Flags().StringVar(&extra, "context", "", "extra context for the planner")
	return cmd
}

func newGoalListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List goals with their progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			list, err := svc.Goals.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No goals yet. Start one with: aclio goal new \"<goal>\"")
				return nil
			}
			for _, g := range list {
				mark := " "
				if g.IsComplete() {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %3d  %-40s %3d%%  %d/%d steps\n",
					mark, g.ID, truncate(g.Name, 40), g.Progress(), len(g.CompletedSteps), len(g.Steps))
			}
			return nil
		},
	}
}

func newGoalShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goal")
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			g, err := svc.Goals.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d %s\n", g.ID, g.Name)
			if g.Category != "" {
				fmt.Fprintf(out, "Category: %s\n", g.Category)
			}
			if g.DueDate != nil {
				fmt.Fprintf(out, "Due: %s\n", g.DueDate.Format("2006-01-02"))
			}
			fmt.Fprintf(out, "Progress: %d%%\n", g.Progress())
			printSteps(out, g)
			return nil
		},
	}
}

func newGoalDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <goal-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a goal (points and achievements are kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goal")
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteGoal(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DELETED %d\n", id)
			return nil
		},
	}
}

func newGoalExtendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "extend <goal-id>",
		Short: "Ask the coach for follow-up steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goal")
			if err != nil {
				return err
			}
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			before, err := svc.Goals.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			g, err := svc.ExtendGoal(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "EXTENDED %d with %d steps\n", g.ID, len(g.Steps)-len(before.Steps))
			printSteps(cmd.OutOrStdout(), g)
			return nil
		},
	}
}

func printSteps(out io.Writer, g models.Goal) {
	for _, st := range g.Steps {
		mark := " "
		if g.IsStepCompleted(st.ID) {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %d. %s", mark, st.ID, st.Title)
		if st.Duration != "" {
			fmt.Fprintf(out, " (%s)", st.Duration)
		}
		fmt.Fprintln(out)
	}
}

func printResult(out io.Writer, res app.GoalResult) {
	if res.Award != nil && res.Award.Gained > 0 {
		fmt.Fprintf(out, "+%d points (total %d)\n", res.Award.Gained, res.Award.Total)
		if res.Award.LeveledUp {
			fmt.Fprintf(out, "Level up! %s %s\n", res.Award.Level.Icon, res.Award.Level.Name)
		}
	}
	for _, a := range res.Unlocked {
		fmt.Fprintf(out, "Achievement unlocked: %s %s\n", a.Icon, a.Name)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
