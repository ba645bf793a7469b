package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/pipeline"
	"github.com/nishad/enaimport/internal/ui"
)

const dayLayout = "2006-01-02"

// NewRunCmd creates the run command
func NewRunCmd(g *Globals) *cobra.Command {
	var (
		from    string
		until   string
		sweep   bool
		threads int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import ENA samples updated or published in a date range",
		Long: `Import every ENA sample whose last update or first public date falls
between --from and --until (inclusive, UTC calendar days) into BioSamples.

Samples that fail after all retries are listed in the run summary and the
failed-accessions artifact; they never stop the run. With --sweep, the status
of suppressed and killed samples is brought in line with ERAPRO afterwards.

Examples:
  # Import yesterday's updates
  enaimport run

  # Import a week and run the suppressed/killed sweep
  enaimport run --from 2024-01-01 --until 2024-01-07 --sweep`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDay, untilDay, err := parseRange(from, until, time.Now())
			if err != nil {
				return err
			}
			return withApp(cmd, g, threads, func(ctx context.Context, app *appContext) error {
				msg := fmt.Sprintf("Importing samples from %s to %s", fromDay.Format(dayLayout), untilDay.Format(dayLayout))
				var run *models.PipelineRun
				err := app.track(msg, func() (err error) {
					run, err = app.Runner.Run(ctx, pipeline.Options{From: fromDay, Until: untilDay, Sweep: sweep})
					return err
				})
				app.report(run)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day to import, YYYY-MM-DD (default yesterday)")
	cmd.Flags().StringVar(&until, "until", "", "Last day to import, YYYY-MM-DD (default --from)")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "Run the suppressed/killed sweep after the import")
	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "Worker threads (default from config)")

	SetupGroupedHelp(cmd)
	return cmd
}

// parseRange resolves the day flags. An empty --from means yesterday and an
// empty --until means the same day as --from.
func parseRange(from, until string, now time.Time) (time.Time, time.Time, error) {
	var fromDay time.Time
	if from == "" {
		y := now.UTC().AddDate(0, 0, -1)
		fromDay = time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		d, err := time.Parse(dayLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
		}
		fromDay = d
	}

	untilDay := fromDay
	if until != "" {
		d, err := time.Parse(dayLayout, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until %q: expected YYYY-MM-DD", until)
		}
		untilDay = d
	}
	if untilDay.Before(fromDay) {
		return time.Time{}, time.Time{}, fmt.Errorf("--until %s is before --from %s", until, fromDay.Format(dayLayout))
	}
	return fromDay, untilDay, nil
}

// appContext is an open App plus the command's printer.
type appContext struct {
	*App
	p *printer
}

// withApp loads the configuration, opens the app and runs fn under a context
// cancelled by SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, g *Globals, threads int, fn func(ctx context.Context, app *appContext) error) error {
	p := newPrinter(cmd, g)
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if threads > 0 {
		cfg.Pipeline.Threads = threads
	}
	log, err := g.logger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			p.warnf("Interrupted, finishing the run summary...")
			cancel()
		case <-ctx.Done():
		}
	}()

	app, err := Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, &appContext{App: app, p: p})
}

// track runs fn behind a spinner on stderr showing the elapsed time.
func (a *appContext) track(message string, fn func() error) error {
	if a.p.quiet {
		return fn()
	}
	start := time.Now()
	s := ui.NewSpinner(a.p.err, message, a.p.color && isTerminal(a.p.err))
	return ui.Track(s, time.Second, func() string {
		return fmt.Sprintf("%s (%s)", message, time.Since(start).Round(time.Second))
	}, fn)
}

// report prints the summary of a finished run.
func (a *appContext) report(run *models.PipelineRun) {
	if run == nil {
		return
	}
	failed := run.Failed()
	switch {
	case run.Status == models.RunFailed:
		a.p.errorf("Run %s failed: %s", run.ID, run.FailureCause)
	case len(failed) > 0:
		a.p.warnf("Run %s completed with %d failed accessions", run.ID, len(failed))
	default:
		a.p.successf("Run %s completed", a.p.colorize(colorBold, run.ID))
	}
}
