package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"coursewatch/internal/components/serviceutil"
	"coursewatch/internal/components/telemetry"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
)

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func initHttpDump(dir string) {
	out, err := telemetry.NewFilesystemOutput(dir)
	if err != nil {
		serviceutil.Fatal("init http dump", err)
	}
	telemetry.SetRestyDumpOutput(out)
}

// initTelemetry returns the API every component reports to. When otlp is
// configured reports are also exported as metrics, shutdown flushes them.
func initTelemetry(ctx context.Context, cfg telemetry.Config, perfStats bool) (tel telemetry.API, shutdown func()) {
	tel = telemetry.SlogAPI{}
	if !cfg.Enabled() {
		return tel, func() {}
	}

	providers, err := telemetry.Setup(ctx, "coursewatch", cfg)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	shutdown = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		err := providers.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err.Error())
		}
	}

	otelTel, err := telemetry.NewOtelAPI(otel.Meter("coursewatch"))
	if err != nil {
		serviceutil.Fatal("setup telemetry metrics", err)
	}
	tel = telemetry.Multi{tel, otelTel}
	if perfStats {
		telemetry.InstrumentPerfStats(ctx, tel, time.Minute)
	}
	return tel, shutdown
}
