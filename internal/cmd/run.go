package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/Iron-Ham/taskpool/internal/config"
	"github.com/Iron-Ham/taskpool/internal/errors"
	"github.com/Iron-Ham/taskpool/internal/event"
	"github.com/Iron-Ham/taskpool/internal/logging"
	"github.com/Iron-Ham/taskpool/internal/metrics"
	"github.com/Iron-Ham/taskpool/internal/status"
	"github.com/Iron-Ham/taskpool/internal/taskpool"
	"github.com/Iron-Ham/taskpool/internal/tracing"
)

const tracerName = "github.com/Iron-Ham/taskpool/internal/cmd"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo workload through a worker pool",
	Long: `Create a worker pool, submit demo tasks that sleep for a random time,
and show which task each worker is running until the queue drains.

Settings come from the config file and can be overridden with flags or
TASKPOOL_* environment variables.

Examples:
  # 4 workers, 20 tasks
  taskpool run --workers 4 --tasks 20

  # Destroy the pool after 1s, discarding whatever is still queued
  taskpool run --tasks 50 --destroy-after 1s

  # Expose Prometheus metrics while the workload runs
  taskpool run --metrics-addr 127.0.0.1:9090`,
	RunE: runRun,
}

var (
	runDestroyAfter time.Duration
	runEvents       bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	defaults := config.Default()
	runCmd.Flags().IntP("workers", "w", defaults.Pool.Workers, "Number of worker goroutines")
	runCmd.Flags().IntP("tasks", "n", defaults.Demo.Tasks, "Number of demo tasks to submit")
	runCmd.Flags().IntP("producers", "p", defaults.Demo.Producers, "Number of goroutines submitting tasks")
	runCmd.Flags().DurationVar(&runDestroyAfter, "destroy-after", 0, "Destroy the pool after this long even if tasks are still queued")
	runCmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "Serve Prometheus metrics on this address")
	runCmd.Flags().Bool("trace", defaults.Tracing.Enabled, "Export task spans to stderr")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "Print every pool event to stderr")

	_ = viper.BindPFlag("pool.workers", runCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("demo.tasks", runCmd.Flags().Lookup("tasks"))
	_ = viper.BindPFlag("demo.producers", runCmd.Flags().Lookup("producers"))
	_ = viper.BindPFlag("metrics.addr", runCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("tracing.enabled", runCmd.Flags().Lookup("trace"))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	// Asking for an address implies wanting the endpoint.
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
	}

	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if cfg.Logging.Enabled && viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(reloadLogLevels(logger))
		viper.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	live, width := terminalInfo(out)

	provider, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Writer:      cmd.ErrOrStderr(),
		PrettyPrint: cfg.Tracing.PrettyPrint,
		Version:     Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithComponent("run").Warn("span export did not flush", "error", err)
		}
	}()

	stats, err := runWorkload(ctx, workload{
		cfg:          cfg,
		logger:       logger,
		out:          out,
		board:        status.NewBoard(out, width, live),
		registry:     metrics.NewRegistry(),
		tracer:       provider.Tracer(tracerName),
		destroyAfter: runDestroyAfter,
		events:       eventsWriter(runEvents, cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d submitted, %d completed, %d panicked, %d discarded, %d rejected\n",
		stats.Submitted, stats.Completed, stats.Panicked, stats.Discarded, stats.Rejected)
	return nil
}

// newLogger builds the logger described by cfg. With file logging disabled,
// warnings and errors still reach errOut.
func newLogger(cfg config.LoggingConfig, errOut io.Writer) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.New(errOut, logging.LevelWarn), nil
	}

	logger, err := logging.NewLoggerWithRotation(cfg.ResolveDir(), logging.LevelInfo, rotationConfig(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log")
	}
	if err := applyLogLevels(logger, cfg); err != nil {
		_ = logger.Close()
		return nil, err
	}
	return logger, nil
}

func rotationConfig(cfg config.LoggingConfig) logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
}

// applyLogLevels sets the global level and the per-component overrides
// from cfg. Components missing from cfg keep their current setting.
func applyLogLevels(logger *logging.Logger, cfg config.LoggingConfig) error {
	level := logging.LevelInfo
	if cfg.Level != "" {
		parsed, ok := logging.ParseLevel(cfg.Level)
		if !ok {
			return fmt.Errorf("invalid log level %q", cfg.Level)
		}
		level = parsed
	}
	logger.SetLevel(level)

	for name, value := range cfg.Components {
		if strings.EqualFold(value, config.ComponentOff) {
			logger.SetComponentEnabled(name, false)
			continue
		}
		logger.SetComponentEnabled(name, true)
		if lvl, ok := logging.ParseLevel(value); ok {
			logger.SetComponentLevel(name, lvl)
		}
	}
	return nil
}

// reloadLogLevels re-applies the logging levels whenever the config file
// changes. An invalid file leaves the current levels in place.
func reloadLogLevels(logger *logging.Logger) func(fsnotify.Event) {
	log := logger.WithComponent("config")
	return func(e fsnotify.Event) {
		cfg, err := config.Load()
		if err != nil {
			log.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		if err := applyLogLevels(logger, cfg.Logging); err != nil {
			log.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		log.Info("log levels reloaded", "file", e.Name, "level", cfg.Logging.Level)
	}
}

// terminalInfo reports whether w is an interactive terminal and its width.
func terminalInfo(w io.Writer) (live bool, width int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
		width = cols
	}
	return true, width
}

// workload is everything one demo run needs.
type workload struct {
	cfg          *config.Config
	logger       *logging.Logger
	out          io.Writer
	board        *status.Board
	registry     *prometheus.Registry
	tracer       trace.Tracer
	destroyAfter time.Duration
	events       io.Writer // nil: events are not printed
}

func eventsWriter(enabled bool, w io.Writer) io.Writer {
	if !enabled {
		return nil
	}
	return w
}

// demoArg is the argument every demo task receives.
type demoArg struct {
	seq   int
	sleep time.Duration
}

// runWorkload creates a pool, feeds it the demo tasks, waits for the queue
// to drain (bounded by destroyAfter when set), then destroys the pool and
// returns its final counters.
func runWorkload(ctx context.Context, w workload) (taskpool.Stats, error) {
	log := w.logger.WithComponent("run")

	bus := event.NewBus()
	bus.SetSink(w.logger)
	m := metrics.New(w.registry)
	m.Attach(bus)
	defer m.Detach(bus)
	if w.events != nil {
		sub := bus.Subscribe(eventPrinter(w.events))
		defer sub.Cancel()
	}

	var background conc.WaitGroup
	defer background.Wait()

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()

	if w.cfg.Metrics.Enabled {
		srv, err := metrics.Listen(w.cfg.Metrics.Addr, w.registry, w.logger)
		if err != nil {
			return taskpool.Stats{}, err
		}
		fmt.Fprintf(w.out, "metrics on http://%s/metrics\n", srv.Addr())
		background.Go(func() {
			if err := srv.Serve(serveCtx); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		})
	}

	opts := []taskpool.Option{
		taskpool.WithSink(w.logger),
		taskpool.WithEventBus(bus),
		taskpool.WithTracer(w.tracer),
		taskpool.WithDiscardHandler(func(t taskpool.Task) {
			log.Debug("task dropped at shutdown", "task", t.Name)
		}),
	}
	if w.cfg.Pool.DeadlockDetection {
		opts = append(opts, taskpool.WithDeadlockDetection())
	}

	pool, err := taskpool.New(w.cfg.Pool.Workers, opts...)
	if err != nil {
		return taskpool.Stats{}, err
	}
	log.Info("pool started", "pool_id", pool.ID(), "workers", pool.WorkerCount())

	waitCtx := ctx
	if w.destroyAfter > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, w.destroyAfter)
		defer cancel()
	}

	watchCtx, stopWatching := context.WithCancel(ctx)
	var watcher conc.WaitGroup
	watcher.Go(func() {
		watch(watchCtx, pool, w.board, w.cfg.Demo.StatusInterval())
	})

	produceErr := produce(waitCtx, pool, w.cfg.Demo, log)
	if produceErr == nil {
		if err := pool.WaitIdle(waitCtx); err != nil {
			log.Info("stopped waiting for idle pool", "reason", err)
		}
	}

	stopWatching()
	watcher.Wait()

	if err := pool.Destroy(); err != nil {
		return taskpool.Stats{}, err
	}
	stats := pool.Stats()
	if err := w.board.Draw(status.Snapshot{PoolID: pool.ID(), Names: idleNames(pool.WorkerCount()), Stats: stats}); err != nil {
		log.Warn("failed to draw final status", "error", err)
	}

	log.Info("pool destroyed",
		"pool_id", pool.ID(),
		"completed", stats.Completed,
		"panicked", stats.Panicked,
		"discarded", stats.Discarded)

	if produceErr != nil {
		return stats, produceErr
	}
	return stats, nil
}

// produce submits demo.Tasks tasks from demo.Producers goroutines, sharing
// one rate limiter. It stops early without error when ctx ends or the pool
// shuts down.
func produce(ctx context.Context, pool taskpool.Dispatcher, demo config.DemoConfig, log *logging.Logger) error {
	var limiter *rate.Limiter
	if demo.SubmitRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(demo.SubmitRate), 1)
	}

	action := demoAction(log)
	span := demo.MaxTaskDuration() - demo.MinTaskDuration()

	g, gctx := errgroup.WithContext(ctx)
	for p := range demo.Producers {
		g.Go(func() error {
			for seq := p + 1; seq <= demo.Tasks; seq += demo.Producers {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return nil
					}
				}
				if gctx.Err() != nil {
					return nil
				}

				arg := demoArg{seq: seq, sleep: demo.MinTaskDuration() + rand.N(span+1)}
				err := pool.Submit(action, arg, fmt.Sprintf("demo-task-%d", seq))
				if errors.IsShutdown(err) {
					return nil
				}
				if err != nil {
					return errors.Wrapf(err, "producer %d", p)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func demoAction(log *logging.Logger) taskpool.Action {
	return func(arg any) {
		a, ok := arg.(demoArg)
		if !ok {
			log.Error("demo task received unexpected argument", "arg", fmt.Sprintf("%T", arg))
			return
		}
		log.Debug("demo task started", "seq", a.seq, "sleep", a.sleep)
		time.Sleep(a.sleep)
		log.Debug("demo task finished", "seq", a.seq)
	}
}

// watch redraws the board every interval until ctx is done. A zero
// interval disables it.
func watch(ctx context.Context, pool *taskpool.Pool, board *status.Board, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			names, err := pool.RunningTaskNames()
			if err != nil {
				return
			}
			_ = board.Draw(status.Snapshot{PoolID: pool.ID(), Names: names, Stats: pool.Stats()})
			taskpool.ReleaseNames(names, len(names))
		}
	}
}

func idleNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = taskpool.IdleTaskName
	}
	return names
}
