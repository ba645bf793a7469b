package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/runstore"
)

// NewRunsCmd creates the runs command group
func NewRunsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the history of pipeline runs",
	}
	cmd.AddCommand(newRunsListCmd(g), newRunsShowCmd(g))
	return cmd
}

func openRunStore(g *Globals) (*runstore.Store, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return runstore.Open(cfg.RunStore.Path)
}

func newRunsListCmd(g *Globals) *cobra.Command {
	var (
		f      runstore.Filter
		status string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = models.RunStatus(strings.ToUpper(status))
			store, err := openRunStore(g)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), f)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if runs == nil {
					runs = []*models.PipelineRun{}
				}
				return enc.Encode(runs)
			case "table":
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTIMESTAMP\tPIPELINE\tSTATUS\tFAILED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.ID, r.Timestamp.Format("2006-01-02 15:04:05"),
						r.PipelineName, r.Status, len(r.Failed()))
				}
				return w.Flush()
			default:
				return fmt.Errorf("unknown format %q (table|json)", format)
			}
		},
	}

	cmd.Flags().IntVarP(&f.Limit, "limit", "l", 20, "Maximum runs to show")
	cmd.Flags().StringVar(&f.PipelineName, "pipeline", "", "Only runs of this pipeline")
	cmd.Flags().StringVar(&status, "status", "", "Only runs with this status (COMPLETED|FAILED)")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format (table|json)")
	return cmd
}

func newRunsShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and its failed accessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRunStore(g)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", run.ID)
			fmt.Fprintf(out, "Timestamp: %s\n", run.Timestamp.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Pipeline:  %s\n", run.PipelineName)
			fmt.Fprintf(out, "Status:    %s\n", run.Status)
			if run.FailureCause != "" {
				fmt.Fprintf(out, "Cause:     %s\n", run.FailureCause)
			}
			failed := run.Failed()
			fmt.Fprintf(out, "Failed:    %d\n", len(failed))
			for _, acc := range failed {
				fmt.Fprintf(out, "  %s\n", acc)
			}
			return nil
		},
	}
}
