package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nishad/enaimport/internal/models"
)

// NewAccessionsCmd creates the accessions command
func NewAccessionsCmd(g *Globals) *cobra.Command {
	var (
		file    string
		threads int
	)

	cmd := &cobra.Command{
		Use:   "accessions [ACCESSION...]",
		Short: "Import specific samples regardless of their dates",
		Long: `Import the given BioSamples accessions. Accessions are read from the
arguments and from --file, one per line; "-" reads standard input. Blank
lines and lines starting with # are ignored.

Examples:
  enaimport accessions SAMEA1234567 SAMEA7654321
  enaimport accessions --file failed.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			accessions := append([]string(nil), args...)
			if file != "" {
				list, err := readAccessionSource(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				accessions = append(accessions, list...)
			}
			if len(accessions) == 0 {
				return fmt.Errorf("no accessions given")
			}

			return withApp(cmd, g, threads, func(ctx context.Context, app *appContext) error {
				var run *models.PipelineRun
				err := app.track(fmt.Sprintf("Importing %d accessions", len(accessions)), func() (err error) {
					run, err = app.Runner.RunAccessions(ctx, accessions)
					return err
				})
				app.report(run)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read accessions from a file (- for stdin)")
	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "Worker threads (default from config)")
	return cmd
}

func readAccessionSource(stdin io.Reader, path string) ([]string, error) {
	if path == "-" {
		return readAccessions(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAccessions(f)
}
