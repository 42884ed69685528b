package commands

import (
	"fmt"
	"strings"

	"coursewatch/internal/scrapers/wmg"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	eventsName string
	eventsDate string
)

func init() {
	eventsCmd.Flags().StringVar(&eventsName, "name", "", "Only show the course with this exact name.")
	eventsCmd.Flags().StringVar(&eventsDate, "date", "", "Only show courses on this day, YYYY/MM/DD.")
	rootCmd.AddCommand(eventsCmd)
}

var eventHeader = table.Row{"Name", "Location", "Date", "Registration", "Status"}

func eventRow(e wmg.EventRecord) table.Row {
	return table.Row{
		e.Name,
		e.Location,
		e.EventDate,
		fmt.Sprintf("%s ~ %s", e.RegistrationStart, e.RegistrationEnd),
		e.Status.Label(),
	}
}

var eventsCmd = &cobra.Command{
	Use:   "events [--name <name>] [--date <YYYY/MM/DD>]",
	Short: "Logs in and prints the course listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd, appOptions{})
		defer a.close()

		ctx, cancel := withTimeout(cmd.Context(), a)
		defer cancel()
		markup, ok := a.scraper.PageContent(ctx)
		if !ok {
			return fmt.Errorf("could not load the course listing")
		}

		filter := wmg.Filter{Name: eventsName, Date: eventsDate}
		records := a.parser.Parse(markup, filter)
		if len(records) == 0 {
			if filter.Name != "" {
				suggestions := wmg.Suggest(a.parser.Names(markup), filter.Name, 5)
				if len(suggestions) > 0 {
					return fmt.Errorf("no matching course, did you mean: %s", strings.Join(suggestions, ", "))
				}
			}
			return fmt.Errorf("no matching course")
		}

		t := newTable()
		t.AppendHeader(eventHeader)
		for _, e := range records {
			t.AppendRow(eventRow(e))
		}
		t.Render()
		return nil
	},
}
