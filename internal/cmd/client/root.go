package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the mqtap client.
// It registers every inspection command group.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "mqtap",
		Short: "mqtap client commands",
	}
	root.AddCommand(NewStatsCommand(baseURL))
	root.AddCommand(NewTreeCommand(baseURL))
	root.AddCommand(NewMessagesCommand(baseURL))
	root.AddCommand(NewTailCommand(baseURL))
	root.AddCommand(NewCaptureCommand(baseURL))
	return root
}
