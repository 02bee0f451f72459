package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/profile"
	"github.com/aclio/aclio/usage"
)

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Short:   "Show or edit your profile",
		GroupID: "system",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Profile.Load(cmd.Context())
			if errors.Is(err, profile.ErrNoProfile) {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile yet. Create one with: aclio profile set --name <name>")
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:   %s\n", p.Name)
			if p.Age != "" {
				fmt.Fprintf(out, "Age:    %s\n", p.Age)
			}
			if p.Gender != "" {
				fmt.Fprintf(out, "Gender: %s\n", p.Gender)
			}
			return nil
		},
	}

	var name, age, gender string
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or update the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Profile.Load(cmd.Context())
			if err != nil && !errors.Is(err, profile.ErrNoProfile) {
				return err
			}
			if cmd.Flags().Changed("name") {
				p.Name = name
			}
			if cmd.Flags().Changed("age") {
				p.Age = age
			}
			if cmd.Flags().Changed("gender") {
				p.Gender = models.Gender(gender)
			}
			p, err = svc.Profile.Save(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SAVED %s\n", p.Name)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "your name")
	set.Flags().StringVar(&age, "age", "", "your age")
	set.Flags().StringVar(&gender, "gender", "", "male, female, nonBinary or preferNotToSay")

	cmd.AddCommand(show, set)
	return cmd
}

func newPremiumCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "premium [on|off]",
		Short:     "Show remaining AI uses or switch premium",
		GroupID:   "system",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				switch args[0] {
				case "on", "off":
					if err := svc.Usage.SetPremium(ctx, args[0] == "on"); err != nil {
						return err
					}
					fmt.Fprintf(out, "PREMIUM %s\n", args[0])
				default:
					return fmt.Errorf("want on or off, got %q", args[0])
				}
			}
			for _, f := range []usage.Feature{usage.FeatureGenerateSteps, usage.FeatureExpandStep, usage.FeatureDoItForMe, usage.FeatureChat} {
				remaining, unlimited, err := svc.Usage.Remaining(ctx, f)
				if err != nil {
					return err
				}
				if unlimited {
					fmt.Fprintf(out, "%-14s unlimited\n", f)
					continue
				}
				fmt.Fprintf(out, "%-14s %d left today\n", f, remaining)
			}
			return nil
		},
	}
	return cmd
}
