package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aclio/aclio/gamification"
)

func newBonusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "bonus",
		Short:   "Claim today's daily bonus",
		GroupID: "progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			award, ok := svc.ClaimDailyBonus(cmd.Context())
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "Daily bonus already claimed today. Come back tomorrow!")
				return nil
			}
			fmt.Fprintf(out, "+%d points (total %d)\n", award.Gained, award.Total)
			if award.LeveledUp {
				fmt.Fprintf(out, "Level up! %s %s\n", award.Level.Icon, award.Level.Name)
			}
			return nil
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Short:   "Show points, level, streak and goal totals",
		GroupID: "progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			st, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			lvl := st.Level
			fmt.Fprintf(out, "Level:    %d %s %s (%d%%)\n", lvl.Current.Level, lvl.Current.Icon, lvl.Current.Name, lvl.Percent)
			if lvl.Next != nil {
				fmt.Fprintf(out, "Next:     %s in %d points\n", lvl.Next.Name, lvl.PointsForNext-lvl.PointsIntoLevel)
			}
			fmt.Fprintf(out, "Points:   %d\n", st.Points)
			fmt.Fprintf(out, "Streak:   %d days (best %d)\n", st.Streak.Current, st.Streak.Best)
			fmt.Fprintf(out, "Goals:    %d (%d complete)\n", st.Goals, st.CompletedGoals)
			fmt.Fprintf(out, "Steps:    %d complete\n", st.CompletedSteps)
			fmt.Fprintf(out, "Badges:   %d/%d\n", len(st.Unlocked), len(gamification.Catalog))
			bonus := "available"
			if st.DailyBonusClaimed {
				bonus = "claimed"
			}
			fmt.Fprintf(out, "Bonus:    %s\n", bonus)
			if st.PendingChanges > 0 {
				fmt.Fprintf(out, "Pending:  %d offline changes\n", st.PendingChanges)
			}
			if st.Premium {
				fmt.Fprintln(out, "Plan:     premium")
			}
			return nil
		},
	}
}

func newAchievementsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "achievements",
		Aliases: []string{"badges"},
		Short:   "List achievements and which are unlocked",
		GroupID: "progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			unlocked := map[string]bool{}
			for _, id := range svc.Engine.Snapshot().Unlocked {
				unlocked[id] = true
			}
			out := cmd.OutOrStdout()
			for _, a := range gamification.Catalog {
				mark := " "
				if unlocked[a.ID] {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %s %-22s %s\n", mark, a.Icon, a.Name, a.Description)
			}
			return nil
		},
	}
}
