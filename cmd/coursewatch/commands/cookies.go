package commands

import (
	"fmt"
	"time"

	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	cookiesCmd.AddCommand(cookiesClearCmd)
	cookiesCmd.AddCommand(cookiesStatusCmd)
	rootCmd.AddCommand(cookiesCmd)
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Inspects or clears the saved login session.",
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes the saved login session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		cache := newSession(cfg, chrono.NewStandardTime(), telemetry.SlogAPI{})
		if !cache.Clear() {
			return fmt.Errorf("could not clear cookies")
		}
		fmt.Println("Cookies 已清除")
		return nil
	},
}

var cookiesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the age and validity of the saved login session.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		cache := newSession(cfg, chrono.NewStandardTime(), telemetry.SlogAPI{})

		t := newTable()
		t.AppendHeader(table.Row{"Saved at", "Age", "Max age", "Valid"})
		savedAt := "-"
		age := "-"
		if at, ok := cache.SavedAt(); ok {
			savedAt = at.Format(time.DateTime)
		}
		if d, ok := cache.Age(); ok {
			age = d.Round(time.Second).String()
		}
		t.AppendRow(table.Row{savedAt, age, cfg.Monitor.CookieMaxAge().String(), cache.IsValid()})
		t.Render()
	},
}
