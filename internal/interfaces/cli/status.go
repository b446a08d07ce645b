package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	proStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	freeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// NewStatusCommand creates the status command
func NewStatusCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active identity and subscription status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}

			id := container.Entitlements.Identity()
			sub := container.Entitlements.EffectiveSubscription()

			fmt.Println(titleStyle.Render("Lexiscan"))
			fmt.Printf("%s %s\n", labelStyle.Render("Identity"), id.Ref())
			fmt.Printf("%s %s\n", labelStyle.Render("Tier"), string(sub.Tier))
			fmt.Printf("%s %s\n", labelStyle.Render("Status"), string(sub.Status))

			if container.Entitlements.IsPro() {
				fmt.Println(proStyle.Render("Pro features unlocked"))
			} else {
				fmt.Println(freeStyle.Render("Free tier - feature quotas apply"))
			}
			return nil
		},
	}
}
