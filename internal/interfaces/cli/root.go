package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/application/services"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/infrastructure/api"
	"lexiscan.ai/cli/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	Entitlements *services.EntitlementService
	Chats        *services.ChatService
	Gateway      *api.LexiscanAPIGateway
	Config       *config.Config
	Logger       ports.LoggingGateway
}

// NewRootCommand creates the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "lexiscan",
		Short: "Lexiscan CLI - document analysis entitlements and sync",
		Long: `Lexiscan CLI manages your document analysis account: feature quotas,
subscription status, promotional offers, chats, and the local analysis cache.

Guest usage is tracked on this device; signing in migrates your guest
history into your account, one way.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOverrides(cmd, container)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("api-key", "", "API key for the Lexiscan platform")
	rootCmd.PersistentFlags().String("api-url", "", "API endpoint URL")

	rootCmd.AddCommand(NewStatusCommand(container))
	rootCmd.AddCommand(NewUsageCommand(container))
	rootCmd.AddCommand(NewOfferCommand(container))
	rootCmd.AddCommand(NewCountdownCommand(container))
	rootCmd.AddCommand(NewChatCommand(container))
	rootCmd.AddCommand(NewAnalysisCommand(container))
	rootCmd.AddCommand(NewAuthCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// applyOverrides applies configuration overrides from command line flags
func applyOverrides(cmd *cobra.Command, container *CLIContainer) error {
	if cmd.Flags().Changed("api-url") {
		apiURL, _ := cmd.Flags().GetString("api-url")
		if err := container.Gateway.UpdateEndpoint(apiURL); err != nil {
			return fmt.Errorf("failed to override API URL: %w", err)
		}
	}
	if debugFlag, _ := cmd.Flags().GetBool("debug"); debugFlag {
		container.Logger.SetLogLevel(ports.LogLevelDebug)
	}
	return nil
}

// startSession binds the entitlement stack to the configured identity.
func startSession(cmd *cobra.Command, container *CLIContainer) error {
	id := identity.Guest()
	if container.Config.AccountID != "" {
		id = identity.Account(container.Config.AccountID)
	}
	return container.Entitlements.Start(cmd.Context(), id)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
