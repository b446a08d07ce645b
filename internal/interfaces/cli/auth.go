package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/infrastructure/config"
)

// NewAuthCommand creates the auth command
func NewAuthCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and out of your Lexiscan account",
	}

	cmd.AddCommand(newLoginCommand(container))
	cmd.AddCommand(newLogoutCommand(container))
	return cmd
}

func newLoginCommand(container *CLIContainer) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "login <account-id>",
		Short: "Sign in to an account",
		Long: `Sign in to an account.

Any guest usage, chats, and offer progress on this device are copied into
the account. The copy is one way: counters are only ever lowered, never
restored, and a re-run cannot duplicate chats.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]
			if err := container.Entitlements.SignIn(cmd.Context(), accountID); err != nil {
				return err
			}

			container.Config.AccountID = accountID
			if apiKey != "" {
				container.Config.APIKey = apiKey
			}
			if err := config.SaveConfig(container.Config); err != nil {
				return fmt.Errorf("signed in, but failed to save config: %w", err)
			}

			fmt.Printf("Signed in as %s\n", accountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store for this account")
	return cmd
}

func newLogoutCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of the current account",
		Long: `Sign out of the current account.

Your current consumption is snapshotted on this device, so the following
guest session continues from the same counters instead of fresh free
limits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}
			if container.Entitlements.Identity().IsGuest() {
				fmt.Println("Not signed in.")
				return nil
			}
			if err := container.Entitlements.SignOut(cmd.Context()); err != nil {
				return err
			}

			container.Config.AccountID = ""
			if err := config.SaveConfig(container.Config); err != nil {
				return fmt.Errorf("signed out, but failed to save config: %w", err)
			}

			fmt.Println("Signed out. Guest session continues from your current counters.")
			return nil
		},
	}
}
