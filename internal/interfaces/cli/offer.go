package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/core/offer"
)

// NewOfferCommand creates the offer command
func NewOfferCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Show the current promotional offer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}

			active := container.Entitlements.ActiveOffer(cmd.Context())
			if active == nil {
				fmt.Println("No offer is running right now.")
				return nil
			}

			state, err := container.Entitlements.EnsureOfferState(cmd.Context(), active.ID)
			if err != nil {
				return err
			}

			switch state.PhaseAt(time.Now()) {
			case offer.PhaseDismissed:
				fmt.Printf("Offer %s was dismissed.\n", active.ID)
			case offer.PhaseRedeemed:
				fmt.Printf("Offer %s is already redeemed.\n", active.ID)
			case offer.PhaseExpired:
				fmt.Printf("Offer %s has expired.\n", active.ID)
			default:
				fmt.Println(titleStyle.Render(describeOffer(active)))
				fmt.Printf("%s %s\n", labelStyle.Render("Expires"), state.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.AddCommand(newOfferDismissCommand(container))
	return cmd
}

// newOfferDismissCommand creates the offer dismiss subcommand
func newOfferDismissCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <offer-id>",
		Short: "Dismiss an offer so it is not shown again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startSession(cmd, container); err != nil {
				return err
			}
			if err := container.Entitlements.DismissOffer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Offer %s dismissed.\n", args[0])
			return nil
		},
	}
}

func describeOffer(o *offer.Offer) string {
	switch o.DiscountType {
	case offer.DiscountPercent:
		return fmt.Sprintf("Offer %s: %d%% off", o.ID, o.DiscountValue)
	case offer.DiscountFixed:
		return fmt.Sprintf("Offer %s: %d.%02d off", o.ID, o.DiscountValue/100, o.DiscountValue%100)
	default:
		return fmt.Sprintf("Offer %s", o.ID)
	}
}
