package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/core/chat"
)

// NewChatCommand creates the chat command
func NewChatCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Manage analysis chats",
		Long: `Manage analysis chats.

Guest chats live on this device; account chats live in your account.
Signing in copies guest chats into the account.`,
	}

	cmd.AddCommand(newChatListCommand(container))
	cmd.AddCommand(newChatNewCommand(container))
	cmd.AddCommand(newChatSendCommand(container))
	cmd.AddCommand(newChatDeleteCommand(container))
	return cmd
}

func newChatListCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chats for the active identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startChatSession(cmd, container); err != nil {
				return err
			}
			chats, err := container.Chats.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Println("No chats yet.")
				return nil
			}
			for _, c := range chats {
				fmt.Printf("%s  %s  (updated %s)\n", c.ID, c.Title, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newChatNewCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "new <title>",
		Short: "Start a new chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startChatSession(cmd, container); err != nil {
				return err
			}
			c, err := container.Chats.StartChat(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			fmt.Printf("Created chat %s\n", c.ID)
			return nil
		},
	}
}

func newChatSendCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <message>",
		Short: "Append a message to a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startChatSession(cmd, container); err != nil {
				return err
			}
			if _, err := container.Chats.AppendMessage(cmd.Context(), args[0], chat.RoleUser, args[1], nil); err != nil {
				return err
			}
			fmt.Println("Message sent.")
			return nil
		},
	}
}

func newChatDeleteCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a guest chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startChatSession(cmd, container); err != nil {
				return err
			}
			if err := container.Chats.DeleteChat(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Chat deleted.")
			return nil
		},
	}
}

// startChatSession starts the entitlement session and points the chat store
// at the same identity.
func startChatSession(cmd *cobra.Command, container *CLIContainer) error {
	if err := startSession(cmd, container); err != nil {
		return err
	}
	container.Chats.SetIdentity(container.Entitlements.Identity())
	return nil
}
