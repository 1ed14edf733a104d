package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-process/internal/logging"
	"github.com/askiada/go-process/internal/versions"
	"github.com/askiada/go-process/pkg/config"
	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/drawer"
	"github.com/askiada/go-process/pkg/process/measure"
	"github.com/askiada/go-process/pkg/process/model"
	"github.com/askiada/go-process/pkg/process/report"
	"github.com/askiada/go-process/pkg/process/tracing"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "process",
		Short:         "Run reference based processing pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			metadata := process.NewRunMetadata("process", version)
			fmt.Fprintf(cmd.OutOrStdout(), "process v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "framework: %s\n", metadata.FrameworkVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})

	var configFile, logLevel string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Detect the documents whose version changed between a local and a remote store",
		Long: `Run loads the local and remote versions, detects the changed document ids and writes them
as JSON lines, one line per batch. Nothing is written when there are no changes.

Example:
  process run --config settings.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return run(ctx, configFile, logLevel, cmd.OutOrStdout())
		},
	}
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the YAML or JSON settings file (required)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level overriding the settings (debug, info, warn, error)")
	_ = runCmd.MarkFlagRequired("config")
	root.AddCommand(runCmd)

	return root
}

func run(ctx context.Context, configFile, logLevel string, stdout io.Writer) (err error) {
	var settings versions.Settings
	err = config.Load(configFile, &settings)
	if err != nil {
		return errors.Wrap(err, "unable to load settings")
	}
	if logLevel != "" {
		settings.Log.Level = logLevel
	}

	logger, err := logging.New(settings.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	out := stdout
	if settings.Output != "" {
		file, createErr := os.Create(settings.Output)
		if createErr != nil {
			return errors.Wrapf(createErr, "unable to create output %s", settings.Output)
		}
		defer func() { err = multierr.Append(err, errors.Wrap(file.Close(), "unable to close output")) }()
		out = file
	}

	hooks, finish, err := newHooks(settings)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, finish(context.WithoutCancel(ctx))) }()

	pipe, err := process.New[versions.Settings, *versions.References, *versions.Clients](ctx, settings,
		process.NewRunMetadata(settings.Name, version),
		&versions.Builder{Output: out},
		process.WithName(settings.Name),
		process.WithLogger(logger),
		process.WithHooks(hooks...),
	)
	if err != nil {
		return errors.Wrap(err, "unable to initialise pipeline")
	}
	pipe.LogSteps()

	err = pipe.Execute(ctx)
	if err != nil {
		return err
	}
	if escaped := pipe.Escaped(); escaped != nil {
		logger.Info("nothing to write", zap.String("reason", escaped.Reason))
	}

	return nil
}

// newHooks returns the hooks enabled by the settings and the function releasing them once the pipeline
// is finished.
func newHooks(settings versions.Settings) ([]model.PipelineOption, func(ctx context.Context) error, error) {
	var finishers []func(ctx context.Context) error
	finish := func(ctx context.Context) error {
		var errs error
		for _, fn := range finishers {
			errs = multierr.Append(errs, fn(ctx))
		}

		return errs
	}

	var msr measure.Measure = measure.NewDefaultMeasure()
	if settings.Metrics != "" {
		reg := prometheus.NewRegistry()
		promMeasure, err := measure.NewPrometheusMeasure(settings.Name, reg)
		if err != nil {
			return nil, nil, err
		}
		msr = promMeasure
		finishers = append(finishers, func(context.Context) error {
			return errors.Wrap(prometheus.WriteToTextfile(settings.Metrics, reg), "unable to write metrics")
		})
	}
	hooks := []model.PipelineOption{measure.PipelineMeasure(msr)}

	if settings.Graph != "" {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewFileDrawer(settings.Graph), msr))
	}

	if settings.Trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to create trace exporter")
		}
		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		hooks = append(hooks, tracing.PipelineTracer(settings.Name, tracing.WithTracerProvider(provider)))
		finishers = append(finishers, func(ctx context.Context) error {
			return errors.Wrap(provider.Shutdown(ctx), "unable to shutdown tracer provider")
		})
	}

	if settings.SentryDSN != "" {
		client, err := sentry.NewClient(sentry.ClientOptions{Dsn: settings.SentryDSN, Release: version})
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to create sentry client")
		}
		hooks = append(hooks, report.PipelineReporter(sentry.NewHub(client, sentry.NewScope()), settings.Name))
	}

	return hooks, finish, nil
}
