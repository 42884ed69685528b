package commands

import (
	"fmt"

	"coursewatch/internal/captcha"
	"coursewatch/internal/components/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(captchaCmd)
}

var captchaCmd = &cobra.Command{
	Use:   "captcha <image src>",
	Short: "Looks up the answer of a captcha image in the bundled table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		lookup, err := captcha.DefaultLookup(cfg.Site.BaseUrl, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		digits, ok := lookup.Resolve(cmd.Context(), captcha.Image{Src: args[0]})
		if !ok {
			return fmt.Errorf("%s is not one of the %d known captcha images", args[0], lookup.Len())
		}
		fmt.Println(digits)
		return nil
	},
}
