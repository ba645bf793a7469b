package cli

import (
	"github.com/spf13/cobra"

	"github.com/nishad/enaimport/internal/erapro"
	"github.com/nishad/enaimport/internal/paths"
)

// NewMirrorCmd creates the mirror command group
func NewMirrorCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage a local SQLite mirror of the ERAPRO sample tables",
	}
	cmd.AddCommand(newMirrorInitCmd(g))
	return cmd
}

func newMirrorInitCmd(g *Globals) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the mirror schema",
		Long: `Create the sample, submission and alias tables read by the pipeline in a
SQLite file. Point source.driver at sqlite3 and source.dsn at the file to
run the pipeline against it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd, g)
			db, err := erapro.Open(cmd.Context(), "sqlite3", path, erapro.Options{}, nil)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			p.successf("Mirror schema ready at %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", paths.GetMirrorPath(), "SQLite file to initialize")
	return cmd
}
