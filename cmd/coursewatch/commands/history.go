package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/serviceutil"
	"coursewatch/internal/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const historyRetention = 30 * 24 * time.Hour

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "How many checks to show.")
	rootCmd.AddCommand(historyCmd)
}

// schedulePrune drops history older than historyRetention once a day.
func schedulePrune(ctx context.Context, cron chrono.CronAPI, a *app, store history.Store) {
	err := cron.Cron("@daily", func() {
		n, err := store.Prune(ctx, a.clock.Now().Add(-historyRetention))
		if err != nil {
			a.tel.ReportWarning("history.prune", err)
			return
		}
		a.tel.ReportCount("history.pruned", n)
	})
	if err != nil {
		serviceutil.Fatal("schedule history prune", err)
	}
}

var historyCmd = &cobra.Command{
	Use:   "history [-n <limit>]",
	Short: "Prints the most recent monitor checks.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if !cfg.History.Enabled() {
			serviceutil.Fatal("history", fmt.Errorf("history is not configured, set history.file or history.url"))
		}
		store, err := history.Open(cfg.History)
		if err != nil {
			serviceutil.Fatal("open history", err)
		}
		defer store.Close()

		checks, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			serviceutil.Fatal("read history", err)
		}
		if len(checks) == 0 {
			slog.Info("no checks recorded yet")
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Checked at", "Ok", "Message", "Open", "Notified"})
		for _, c := range checks {
			var open []string
			for _, e := range c.Events {
				if e.Status == "open" {
					open = append(open, e.Name)
				}
			}
			t.AppendRow(table.Row{
				c.ID,
				c.CheckedAt.Format(time.DateTime),
				c.Ok,
				c.Message,
				strings.Join(open, "\n"),
				c.NotifiedCount(),
			})
		}
		t.Render()
	},
}
