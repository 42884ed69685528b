package commands

import (
	"fmt"

	"coursewatch/internal/components/telemetry"
	"coursewatch/internal/site"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Checks that the course site answers, without logging in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		prober, err := site.NewProber(site.ProberOptions{
			BaseUrl:   cfg.Site.BaseUrl,
			UserAgent: cfg.Browser.UserAgent,
		}, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		result := prober.Probe(cmd.Context())

		t := newTable()
		t.AppendHeader(table.Row{"Site", "Reachable", "Status", "Latency", "Title"})
		t.AppendRow(table.Row{
			cfg.Site.BaseUrl,
			result.Reachable,
			result.StatusCode,
			result.Latency.String(),
			result.Title,
		})
		t.Render()
		if !result.Reachable {
			return fmt.Errorf("site unreachable: %s", result.Error)
		}
		return nil
	},
}
