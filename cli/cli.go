// Package cli provides the command line front end of a benchmark suite.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/executor"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/report"
	"github.com/skylenet/tafelrunde/scenario"
	"github.com/skylenet/tafelrunde/suite"
	"github.com/skylenet/tafelrunde/worker"
)

// EnvLogLevel sets the default of --log-level.
const EnvLogLevel = "TAFEL_LOGLEVEL"

// Options holds the parsed flags.
type Options struct {
	LogLevel      string
	Scenarios     string
	Report        string
	Textfile      string
	PublishURL    string
	PublishSecret string
	NoWarmup      bool
}

// NewRootCommand returns the command tree for s.
func NewRootCommand(s *suite.Suite) *cobra.Command {
	opts := &Options{}
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := &cobra.Command{
		Use:           s.Name(),
		Short:         fmt.Sprintf("Benchmark suite %s (version %s)", s.Name(), s.Version()),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			lvl, err := logrus.ParseLevel(opts.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			log.SetLevel(lvl)
			s.Apply(suite.WithLogger(log))
			return loadScenarios(log, s, opts.Scenarios)
		},
	}

	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = logrus.InfoLevel.String()
	}
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", level, "log level (env "+EnvLogLevel+")")
	root.PersistentFlags().StringVar(&opts.Scenarios, "scenarios", "", "directory of scenario files tried before the suite's own argument filler")

	root.AddCommand(newRunCommand(s, log, opts), newListCommand(s))
	return root
}

func loadScenarios(log logrus.FieldLogger, s *suite.Suite, dir string) error {
	if dir == "" {
		return nil
	}
	set, err := scenario.NewDiscovery(log).Discover(dir)
	if err != nil {
		return err
	}
	s.Apply(suite.WithArgFiller(plan.Chain(set.Filler(), s.Filler())))
	return nil
}

func newRunCommand(s *suite.Suite, log *logrus.Logger, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every benchmark of the suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Workers re-run this command line and diverge here.
			s.ServeWorker()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cmd, s, log, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Report, "report", "", "write the JSON report to this path")
	cmd.Flags().StringVar(&opts.Textfile, "textfile", "", "write Prometheus metrics to this path")
	cmd.Flags().StringVar(&opts.PublishURL, "publish-url", "", "POST the JSON report to this URL")
	cmd.Flags().StringVar(&opts.PublishSecret, "publish-secret", "", "HS256 secret for the publish bearer token")
	cmd.Flags().BoolVar(&opts.NoWarmup, "no-warmup", false, "skip warmup functions")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, s *suite.Suite, log *logrus.Logger, opts *Options) error {
	runID := report.NewRunID()

	cfg := benchmark.DefaultRunnerConfig()
	cfg.Output = cmd.OutOrStdout()
	cfg.Warmup.Enabled = !opts.NoWarmup
	cfg.RunID = runID
	s.Apply(suite.WithRunnerConfig(cfg))

	if !s.HasExecutor() {
		ecfg := executor.DefaultConfig()
		ecfg.Args = os.Args[1:]
		ecfg.Stdout = cmd.OutOrStdout()
		ecfg.Stderr = cmd.ErrOrStderr()
		ecfg.RunID = runID
		s.Apply(suite.WithExecutor(executor.NewExecutor(log, ecfg)))
	}

	outcomes, runErr := s.Run(ctx)
	if errors.Is(runErr, benchmark.ErrConfiguration) || len(outcomes) == 0 {
		return runErr
	}

	doc := report.Build(runID, s, outcomes)
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}

	if opts.Report != "" {
		if err := doc.WriteFile(opts.Report); err != nil {
			errs = append(errs, err)
		} else {
			log.WithField("path", opts.Report).Info("Report written")
		}
	}
	if opts.Textfile != "" {
		if err := report.WriteTextfile(opts.Textfile, doc); err != nil {
			errs = append(errs, err)
		} else {
			log.WithField("path", opts.Textfile).Info("Textfile written")
		}
	}
	if opts.PublishURL != "" {
		p := report.NewPublisher(log, opts.PublishURL, []byte(opts.PublishSecret))
		if _, err := p.Publish(ctx, doc); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish report: %w", err))
		}
	}

	return errors.Join(errs...)
}

func newListCommand(s *suite.Suite) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List benchmarks and their calls without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prepareErr := s.Prepare()

			out := cmd.OutOrStdout()
			for _, b := range s.Benchmarks() {
				fmt.Fprintf(out, "%s (free parameters: %v)\n", b.Name(), b.FreeParameters())
				for _, id := range b.Identifiers() {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return prepareErr
		},
	}
}

// Main executes the command line and does not return. A worker started
// without arguments is served immediately; a worker re-running the run
// command line is served once the scenarios are loaded.
func Main(s *suite.Suite) {
	if worker.Requested() && len(os.Args) < 2 {
		s.ServeWorker()
	}

	if err := NewRootCommand(s).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(0)
}
