package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Tests logging in, reusing the saved session when it is still valid.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd, appOptions{})
		defer a.close()

		ctx, cancel := withTimeout(cmd.Context(), a)
		defer cancel()
		status := a.scraper.TestLogin(ctx)
		if !status.Success {
			return fmt.Errorf("login failed: %s (%s)", status.Message, status.Detail)
		}
		slog.Info(
			"login succeeded",
			"message", status.Message,
			"attempts", status.Attempts,
			"cookies_saved", status.CookiesSaved,
		)
		return nil
	},
}
