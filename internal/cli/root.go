package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the enaimport command tree
func NewRootCmd(version string) *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:   "enaimport",
		Short: "ENA to BioSamples sample import pipeline",
		Long: `enaimport reads ENA sample records from ERAPRO, normalizes their XML,
converts them to BioSamples samples and submits them with retries on a
bounded worker pool. Every run leaves a summary in the run store and a list
of accessions that could not be imported.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Import yesterday's updates
  enaimport run

  # Import a date range and sweep suppressed/killed samples
  enaimport run --from 2024-01-01 --until 2024-01-07 --sweep

  # Re-import the failures of a previous run
  enaimport accessions --file ena_failed_2024-01-07.txt

  # Inspect recent runs
  enaimport runs list --status FAILED`,
	}

	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Config file (default $ENAIMPORT_CONFIG, ./enaimport.yaml or ~/.config/enaimport/config.yaml)")
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&g.Debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		NewRunCmd(g),
		NewAccessionsCmd(g),
		NewRunsCmd(g),
		NewMirrorCmd(g),
		NewServeCmd(g),
	)
	return root
}
