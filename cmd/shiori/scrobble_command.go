package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newScrobbleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrobble <title> <episode>",
		Short: "Record an episode as watched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			episode, err := strconv.Atoi(args[1])
			if err != nil || episode <= 0 {
				return fmt.Errorf("episode must be a positive number, got %q", args[1])
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Scrobble(cmd.Context(), title, episode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scrobbled %s episode %d\n", title, episode)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [title]",
		Short: "Cancel the pending scrobble",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = strings.TrimSpace(args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.CancelScrobble(cmd.Context(), title); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Pull the remote list into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Refresh started")
			return nil
		},
	}
}
