package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/core/entitlement"
)

var (
	exhaustedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	unlimitedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// NewUsageCommand creates the usage command
func NewUsageCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show remaining uses for each metered feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}

			if container.Entitlements.IsPro() {
				fmt.Println(unlimitedStyle.Render("Pro subscription: all features unlimited"))
				return nil
			}

			usage := container.Entitlements.EffectiveUsage()
			for _, f := range entitlement.AllFeatures() {
				remaining, limited := usage.Remaining(f)
				switch {
				case !limited:
					fmt.Printf("%s %s\n", labelStyle.Render(string(f)), unlimitedStyle.Render("unlimited"))
				case remaining == 0:
					fmt.Printf("%s %s\n", labelStyle.Render(string(f)), exhaustedStyle.Render("0 left"))
				default:
					fmt.Printf("%s %d left\n", labelStyle.Render(string(f)), remaining)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(newUsageConsumeCommand(container))
	return cmd
}

// newUsageConsumeCommand creates the usage consume subcommand
func newUsageConsumeCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "consume <feature>",
		Short: "Consume one use of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := entitlement.Feature(args[0])
			if !f.IsKnown() {
				return fmt.Errorf("unknown feature %q", args[0])
			}
			if err := startSession(cmd, container); err != nil {
				return err
			}

			if container.Entitlements.OpenSubscriptionIfLimitReached(f) {
				fmt.Println(exhaustedStyle.Render("Limit reached - upgrade to Pro to continue"))
				return nil
			}
			if err := container.Entitlements.DecrementFeatureUsage(cmd.Context(), f); err != nil {
				return err
			}

			remaining, limited := container.Entitlements.EffectiveUsage().Remaining(f)
			if limited {
				fmt.Printf("Consumed one use of %s, %d left\n", f, remaining)
			} else {
				fmt.Printf("Consumed one use of %s\n", f)
			}
			return nil
		},
	}
}
