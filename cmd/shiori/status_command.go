package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shiori/internal/events"
	"shiori/internal/scrobble"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and list state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			status, err := client.Status(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, statusLine("Daemon", "not running", ansiYellow, colorize))
				return nil
			}

			fmt.Fprintln(out, statusLine("Daemon", "running", ansiGreen, colorize))
			fmt.Fprintln(out, statusLine("Entries", fmt.Sprintf("%d cached", status.TotalEntries), "", colorize))
			fmt.Fprintln(out, statusLine("Pending sync", fmt.Sprintf("%d", status.PendingSync), pendingColor(status.PendingSync), colorize))
			fmt.Fprintln(out, statusLine("Last synced", formatSyncTime(status.LastSynced), "", colorize))
			fmt.Fprintln(out, statusLine("Now watching", formatNowWatching(status.NowWatching), ansiBlue, colorize))

			if len(status.Recent) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderRecent(status.Recent))
			}
			return nil
		},
	}
}

func statusLine(label, value, color string, colorize bool) string {
	line := fmt.Sprintf("  %-14s %s", label+":", value)
	if colorize && color != "" {
		return color + line + ansiReset
	}
	return line
}

func pendingColor(pending int) string {
	if pending > 0 {
		return ansiYellow
	}
	return ""
}

func formatSyncTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatNowWatching(now *scrobble.NowWatching) string {
	if now == nil {
		return "nothing"
	}
	state := "watching"
	if now.Applied {
		state = "scrobbled"
	}
	return fmt.Sprintf("%s episode %d (%s, %s)", now.Title, now.Episode, now.Source, state)
}

func renderRecent(changes []events.StatusChange) string {
	rows := make([][]string, 0, len(changes))
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]
		transition := string(change.NewStatus)
		if change.OldStatus != change.NewStatus {
			transition = fmt.Sprintf("%s -> %s", change.OldStatus, change.NewStatus)
		}
		progress := fmt.Sprintf("%d", change.NewProgress)
		if change.TotalUnits > 0 {
			progress = fmt.Sprintf("%d/%d", change.NewProgress, change.TotalUnits)
		}
		rows = append(rows, []string{
			change.Timestamp.Local().Format("15:04:05"),
			change.Title,
			progress,
			transition,
		})
	}
	header := []string{"Time", "Title", "Episode", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
	return strings.TrimRight(renderTable(header, rows, aligns), "\n")
}
