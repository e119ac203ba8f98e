package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shiori/internal/cache"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the locally cached list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}
			statuses, err := parseStatuses(statusFlag)
			if err != nil {
				return err
			}

			store, err := cache.Open(cfg)
			if err != nil {
				return fmt.Errorf("open list cache: %w", err)
			}
			defer store.Close()

			var entries []*cache.Entry
			if len(statuses) == 0 {
				entries, err = store.List(cmd.Context(), kind)
			} else {
				entries, err = store.ListByStatus(cmd.Context(), kind, statuses...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				progress := fmt.Sprintf("%d", entry.Progress)
				if entry.TotalUnits > 0 {
					progress = fmt.Sprintf("%d/%d", entry.Progress, entry.TotalUnits)
				}
				score := "-"
				if entry.Score > 0 {
					score = fmt.Sprintf("%d", entry.Score)
				}
				sync := ""
				if entry.PendingSync {
					sync = "pending"
				}
				rows = append(rows, []string{
					entry.Title(),
					string(entry.Status),
					progress,
					score,
					sync,
				})
			}
			header := []string{"Title", "Status", "Progress", "Score", "Sync"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(header, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (comma separated)")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "anime", "Media kind (anime or manga)")
	return cmd
}

func parseKind(value string) (cache.MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "anime":
		return cache.KindAnime, nil
	case "manga":
		return cache.KindManga, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

func parseStatuses(value string) ([]cache.Status, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	statuses := make([]cache.Status, 0, len(parts))
	for _, part := range parts {
		status := cache.Status(strings.ToLower(strings.TrimSpace(part)))
		if !cache.ValidStatus(status) {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
