package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical/slide-converter/cmd/slide-converter/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "slide-converter",
	Short: "Convert slide decks and PDFs into per-page images and text",
	Long: `slide-converter downloads a presentation (ppt, pptx, odp or pdf), renders every page
to PNG, extracts its text, uploads each page to a destination endpoint and reports the
outcome to a callback URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // .env is optional
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
