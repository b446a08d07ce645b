package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAnalysisCommand creates the analysis command
func NewAnalysisCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Browse analysis results",
		Long: `Browse analysis results.

The listing comes from your account when the backend is reachable; the
most recent results are cached on this device and served offline.`,
	}

	cmd.AddCommand(newAnalysisListCommand(container))
	cmd.AddCommand(newAnalysisShowCommand(container))
	return cmd
}

func newAnalysisListCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}
			summaries := container.Entitlements.GetCachedAnalysesList(cmd.Context())
			if len(summaries) == 0 {
				fmt.Println("No analyses yet.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%s  [%s]  %s  (%s)\n", s.ID, s.Kind, s.Title, s.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newAnalysisShowCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Show a cached analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}
			a, ok := container.Entitlements.GetCachedAnalysis(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("analysis %s is not cached on this device", args[0])
			}
			fmt.Println(titleStyle.Render(a.Title))
			fmt.Printf("%s %s\n", labelStyle.Render("Kind"), a.Kind)
			fmt.Printf("%s %s\n", labelStyle.Render("Created"), a.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Println(string(a.Body))
			return nil
		},
	}
}
