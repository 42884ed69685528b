package commands

import (
	"context"
	"log/slog"
	"time"

	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/serviceutil"
	"coursewatch/internal/monitor"
	"coursewatch/internal/scrapers/wmg"
	"coursewatch/internal/service"

	"github.com/spf13/cobra"
)

var (
	serveScrape bool
	servePort   int
)

func init() {
	serveCmd.Flags().BoolVar(&serveScrape, "scrape", false, "Run a check immediately on start.")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Overrides server.port from the config.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--scrape] [--port <port>]",
	Short: "Runs the scheduled monitor and the http api.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(cmd, appOptions{notify: true, perfStats: true})
		defer a.close()

		store, historyOk := a.history()
		deps := monitor.Dependencies{
			Source:   a.scraper,
			Parser:   a.parser,
			Notifier: a.notifier(),
			Notified: monitor.NewMemoryNotified(),
			Session:  a.session,
			Time:     a.clock,
		}
		serviceOpts := service.Options{
			Scraper: a.scraper,
			Parser:  a.parser,
			Session: a.session,
			Time:    a.clock,
			Prober:  a.prober(),
			Timeout: a.cfg.Monitor.CheckBudget(),
		}
		if historyOk {
			defer store.Close()
			deps.Recorder = store
			serviceOpts.History = store
		}

		m := monitor.NewMonitor(monitor.Options{
			Target: wmg.Filter{
				Name:     a.cfg.Target.Event,
				Location: a.cfg.Target.Location,
			},
			Link:         a.cfg.Site.TargetUrl(),
			FetchTimeout: a.cfg.Monitor.CheckBudget(),
		}, deps, a.tel)
		serviceOpts.Monitor = m

		cron := chrono.NewStandardCron(a.tel)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			cron.Stop(stopCtx)
		}()
		err := m.Schedule(ctx, cron, a.cfg.Monitor.Interval())
		if err != nil {
			serviceutil.Fatal("schedule monitor", err)
		}
		if historyOk {
			schedulePrune(ctx, cron, a, store)
		}
		if serveScrape {
			// overlaps with the first scheduled run are skipped by Check
			go m.Check(ctx)
		}

		port := a.cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		slog.Info(
			"monitoring",
			"event", a.cfg.Target.Event,
			"location", a.cfg.Target.Location,
			"interval", a.cfg.Monitor.Interval().String(),
		)
		serviceutil.StartHttpServer(ctx, port, service.NewService(serviceOpts, a.tel).Handler())
	},
}
