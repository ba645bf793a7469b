package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nishad/enaimport/internal/api"
)

// NewServeCmd creates the serve command
func NewServeCmd(g *Globals) *cobra.Command {
	var (
		addr string
		cors bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and run history over HTTP",
		Long: `Start the ops server:

  /health            ERAPRO and run store connectivity
  /metrics           Prometheus metrics
  /api/v1/runs       recent runs (?pipeline=, ?status=, ?limit=)
  /api/v1/runs/{id}  one run with its failed accessions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, 0, func(ctx context.Context, app *appContext) error {
				if addr == "" {
					addr = app.Config.Metrics.Listen
				}
				srv := api.NewServer(api.Config{Addr: addr, EnableCORS: cors}, app.Runs, app.Metrics,
					map[string]api.Pinger{"erapro": app.Source, "runstore": app.Runs}, app.Log)

				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start() }()
				app.p.successf("Ops server listening on %s", addr)

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}
				app.p.infof("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default metrics.listen from config)")
	cmd.Flags().BoolVar(&cors, "cors", false, "Allow cross-origin requests")
	return cmd
}
