package commands

import (
	"context"
	"fmt"
	"log/slog"

	"coursewatch/internal/monitor"
	"coursewatch/internal/notify"
	"coursewatch/internal/scrapers/wmg"

	"github.com/spf13/cobra"
)

var checkDryRun bool

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Log alerts instead of sending them.")
	rootCmd.AddCommand(checkCmd)
}

type logNotifier struct{}

func (logNotifier) Send(_ context.Context, text string) bool {
	slog.Info("notification", "text", text)
	return true
}

var checkCmd = &cobra.Command{
	Use:   "check [--dry-run]",
	Short: "Runs a single monitor check.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd, appOptions{notify: !checkDryRun})
		defer a.close()

		var notifier notify.Notifier = logNotifier{}
		if !checkDryRun {
			notifier = a.notifier()
		}
		deps := monitor.Dependencies{
			Source:   a.scraper,
			Parser:   a.parser,
			Notifier: notifier,
			Notified: monitor.NewMemoryNotified(),
			Session:  a.session,
			Time:     a.clock,
		}
		store, ok := a.history()
		if ok {
			defer store.Close()
			deps.Recorder = store
		}

		m := monitor.NewMonitor(monitor.Options{
			Target: wmg.Filter{
				Name:     a.cfg.Target.Event,
				Location: a.cfg.Target.Location,
			},
			Link: a.cfg.Site.TargetUrl(),
		}, deps, a.tel)

		ctx, cancel := withTimeout(cmd.Context(), a)
		defer cancel()
		result := m.Check(ctx)

		t := newTable()
		t.AppendHeader(eventHeader)
		for _, e := range result.Events {
			t.AppendRow(eventRow(e))
		}
		t.Render()
		slog.Info("check finished", "id", result.ID, "ok", result.Ok, "message", result.Message)
		if !result.Ok {
			return fmt.Errorf("check failed: %s", result.Message)
		}
		return nil
	},
}
