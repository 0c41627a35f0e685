package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved analyses",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List saved analyses, most recent first",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), *configFile, false)
				if err != nil {
					return err
				}
				defer a.close()

				items, err := a.history.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one saved analysis",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), *configFile, false)
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.history.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all saved analyses",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), *configFile, false)
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			},
		},
	)
	return cmd
}
