package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"lexiscan.ai/cli/internal/core/offer"
)

var countdownStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205")).
	Padding(1, 2).
	Border(lipgloss.RoundedBorder())

// NewCountdownCommand creates the countdown command
func NewCountdownCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "countdown",
		Short: "Show a live countdown for the current offer",
		Long: `Display a live terminal countdown until the current offer expires.

The countdown works offline once the offer has been seen: the expiry
timestamp is stored on this device.`,
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

			program := tea.NewProgram(newCountdownModel(active.ID, *state))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("countdown failed: %w", err)
			}
			return nil
		},
	}
}

// countdownModel holds the state for the Bubble Tea countdown
type countdownModel struct {
	offerID string
	state   offer.State
	now     time.Time
}

type tickMsg time.Time

func newCountdownModel(offerID string, state offer.State) countdownModel {
	return countdownModel{offerID: offerID, state: state, now: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m countdownModel) Init() tea.Cmd {
	return tick()
}

func (m countdownModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.now = time.Time(msg)
		if m.state.PhaseAt(m.now) == offer.PhaseExpired {
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m countdownModel) View() string {
	phase := m.state.PhaseAt(m.now)
	if phase != offer.PhaseActive {
		return countdownStyle.Render(fmt.Sprintf("Offer %s is %s", m.offerID, phase)) + "\n"
	}

	c := m.state.CountdownAt(m.now)
	return countdownStyle.Render(fmt.Sprintf(
		"Offer %s ends in %02d:%02d:%02d",
		m.offerID, c.Hours, c.Minutes, c.Seconds,
	)) + "\n(q to quit)\n"
}
