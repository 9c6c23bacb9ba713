package cmd

import (
	"fmt"

	"github.com/blacktop/fbpost/internal/fbpost/graph"
	"github.com/spf13/cobra"
)

func newMeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the page or user the access token belongs to",
		Args:  cobra.NoArgs,
		RunE:  runMe,
	}
}

func runMe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	me, err := graph.New(cfg.Graph(), graphOptions...).Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("me: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nid:   %s\n", me.Data.Name, me.Data.ID)
	return nil
}
