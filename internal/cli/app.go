// Package cli implements the enaimport commands.
package cli

import (
	"context"
	"fmt"

	"github.com/nishad/enaimport/internal/artifacts"
	"github.com/nishad/enaimport/internal/biosamples"
	"github.com/nishad/enaimport/internal/config"
	"github.com/nishad/enaimport/internal/enrichment"
	"github.com/nishad/enaimport/internal/erapro"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/metrics"
	"github.com/nishad/enaimport/internal/pipeline"
	"github.com/nishad/enaimport/internal/runstore"
	"github.com/nishad/enaimport/internal/seen"
	"github.com/nishad/enaimport/internal/workerpool"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	Debug      bool
	NoColor    bool
}

// loadConfig reads and validates the configuration named by the flags.
func (g *Globals) loadConfig() (*config.Config, error) {
	path := g.ConfigPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *Globals) logger(cfg *config.Config) (*logger.Logger, error) {
	mode := cfg.Logging.Mode
	if g.Debug || g.Verbose {
		mode = "development"
	}
	return logger.New(mode)
}

// App holds the collaborators built from a configuration.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Source  *erapro.DB
	Runs    *runstore.Store
	Metrics *metrics.Metrics
	Runner  *pipeline.Runner

	closers []func() error
}

// Open connects to ERAPRO, the run store and the optional stores, and wires
// a runner over them. The caller must Close the app.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (app *App, err error) {
	app = &App{Config: cfg, Log: log, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	app.Source, err = erapro.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, erapro.Options{
		AccessionPattern: cfg.Source.AccessionPattern,
		SweepPattern:     cfg.Source.SweepPattern,
		QueryAttempts:    cfg.Source.QueryAttempts,
	}, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Source.Close)

	app.Runs, err = runstore.Open(cfg.RunStore.Path)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Runs.Close)

	client, err := biosamples.NewHTTPClient(biosamples.Options{
		BaseURL:   cfg.BioSamples.BaseURL,
		Token:     cfg.BioSamples.Token,
		Timeout:   cfg.BioSamples.Timeout,
		RateLimit: cfg.BioSamples.RateLimit,
		Burst:     cfg.BioSamples.Burst,
	}, log)
	if err != nil {
		return nil, err
	}

	sink, err := openSink(ctx, cfg.Artifacts)
	if err != nil {
		return nil, err
	}
	store, err := openSeen(ctx, cfg.Seen)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.Close)

	enricher := enrichment.New(app.Source, enrichment.Options{
		ENADomain:          cfg.BioSamples.ENADomain,
		WebinSuperuser:     cfg.BioSamples.WebinSuperuser,
		ApplyFixedTaxonomy: cfg.BioSamples.ApplyFixedTaxonomy,
	}, log)

	app.Runner = pipeline.New(pipeline.Config{
		Name: cfg.Pipeline.Name,
		Pool: workerpool.Options{
			Threads:     cfg.Pipeline.Threads,
			MinThreads:  cfg.Pipeline.MinThreads,
			MaxThreads:  cfg.Pipeline.MaxThreads,
			MaxInFlight: cfg.Pipeline.MaxInFlight,
		},
		MaxRetries:    cfg.Pipeline.MaxRetries,
		RetryDelay:    cfg.Pipeline.RetryDelay,
		SubmitTimeout: cfg.Pipeline.SubmitTimeout,
	}, pipeline.Deps{
		Source:    app.Source,
		Enricher:  enricher,
		Client:    client,
		Runs:      app.Runs,
		Artifacts: sink,
		Seen:      store,
		Metrics:   app.Metrics,
		Log:       log,
	})
	return app, nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func openSink(ctx context.Context, cfg config.ArtifactsConfig) (artifacts.Sink, error) {
	switch cfg.Driver {
	case "s3":
		return artifacts.NewS3Sink(ctx, artifacts.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Prefix:    cfg.Prefix,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	case "file", "":
		return artifacts.NewFileSink(cfg.Directory)
	default:
		return nil, fmt.Errorf("unknown artifacts driver %q", cfg.Driver)
	}
}

func openSeen(ctx context.Context, cfg config.SeenConfig) (seen.Store, error) {
	switch cfg.Driver {
	case "redis":
		return seen.NewRedis(ctx, cfg.RedisAddr, cfg.Prefix, cfg.TTL)
	case "memory", "":
		return seen.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown seen driver %q", cfg.Driver)
	}
}
