package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shiori/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Local list cache utilities",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cache.Open(cfg)
			if err != nil {
				return fmt.Errorf("open list cache: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries:      %d\n", stats.Total)
			for status, count := range stats.ByStatus {
				if count > 0 {
					fmt.Fprintf(out, "  %-12s%d\n", status+":", count)
				}
			}
			fmt.Fprintf(out, "Pending sync: %d\n", stats.Pending)
			fmt.Fprintf(out, "Last synced:  %s\n", formatSyncTime(stats.LastSynced))
			fmt.Fprintf(out, "Database:     %s\n", store.Path())
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached entry and pending mutation",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			// Prefer the daemon so its in-memory state stays consistent.
			if client.Ping(cmd.Context()) {
				if err := client.ClearCache(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cache.Open(cfg)
			if err != nil {
				return fmt.Errorf("open list cache: %w", err)
			}
			defer store.Close()
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
}
