package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"frameScope/collector"
	"frameScope/config"
	"frameScope/logger"
	"frameScope/metrics"
	"frameScope/processor"
	"frameScope/profiler"
	"frameScope/render"
	"frameScope/report"
	"frameScope/sender"
)

type runOptions struct {
	configPath    string
	watch         bool
	frames        int
	workers       int
	snapshotEvery int
	simulate      bool
	format        string
	tags          []string
}

var runOpts runOptions

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.configPath, "config", "", "TOML or YAML config file")
	f.BoolVar(&runOpts.watch, "watch", false, "reload the config file on change (debug level only)")
	f.IntVar(&runOpts.frames, "frames", 120, "frames to run")
	f.IntVar(&runOpts.workers, "workers", 0, "background goroutines loading assets, each with its own scope tree")
	f.IntVar(&runOpts.snapshotEvery, "snapshot-every", 10, "frames between snapshots handed to the exporters")
	f.BoolVar(&runOpts.simulate, "simulate", false, "advance a simulated clock instead of sleeping")
	f.StringVar(&runOpts.format, "format", "text", "report format (text|msgpack)")
	f.StringSliceVar(&runOpts.tags, "tags", nil, "tags in format key=value")

	defaults := config.NewDefault()
	f.String("layout", defaults.Layout, "text layout (lines|table)")
	f.String("pyroscope-url", "", "URL of the Pyroscope server, empty keeps profiles local")
	f.String("auth", "", "authentication token for Pyroscope")
	f.String("app-name", defaults.AppName, "application name for profiling data")
	f.String("exclude", "", "regex of scope paths left out of exported profiles")
	f.Float64("interval", defaults.Interval, "time between data sends (seconds)")
	f.Int("batch", defaults.BatchLimit, "maximum snapshots per batch")
	f.Int("concurrent", defaults.ConcurrentLimit, "maximum concurrent requests")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Profile a sample game loop and report its scope tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		switch runOpts.format {
		case "text", "msgpack":
		default:
			return fmt.Errorf("unsupported format %q (must be text or msgpack)", runOpts.format)
		}
		if runOpts.frames < 0 || runOpts.snapshotEvery <= 0 || runOpts.workers < 0 {
			return errors.New("frames and workers must not be negative, snapshot-every must be positive")
		}

		applyColor(cfg.Color)
		log := logger.New(os.Stderr, cfg.Debug)

		printWelcomeBanner(cmd.ErrOrStderr(), bannerInfo{
			appName:      cfg.AppName,
			pyroscopeURL: cfg.PyroscopeURL,
			metricsAddr:  cfg.MetricsAddr,
			frames:       runOpts.frames,
			workers:      runOpts.workers,
			simulate:     runOpts.simulate,
			interval:     cfg.Interval,
			batchLimit:   cfg.BatchLimit,
			concurrent:   cfg.ConcurrentLimit,
			exclude:      cfg.ExcludePattern,
			tags:         cfg.Tags,
			debug:        cfg.Debug,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, runOpts, cmd.OutOrStdout(), log)
	},
}

// loadConfig layers defaults, the config file and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefault()
	if runOpts.configPath != "" {
		loaded, err := config.Load(runOpts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("layout") {
		cfg.Layout, _ = flags.GetString("layout")
	}
	if flags.Changed("pyroscope-url") {
		cfg.PyroscopeURL, _ = flags.GetString("pyroscope-url")
	}
	if flags.Changed("auth") {
		cfg.AuthToken, _ = flags.GetString("auth")
	}
	if flags.Changed("app-name") {
		cfg.AppName, _ = flags.GetString("app-name")
	}
	if flags.Changed("exclude") {
		cfg.ExcludePattern, _ = flags.GetString("exclude")
	}
	if flags.Changed("interval") {
		cfg.Interval, _ = flags.GetFloat64("interval")
	}
	if flags.Changed("batch") {
		cfg.BatchLimit, _ = flags.GetInt("batch")
	}
	if flags.Changed("concurrent") {
		cfg.ConcurrentLimit, _ = flags.GetInt("concurrent")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("color") {
		cfg.Color, _ = flags.GetString("color")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	for _, tag := range runOpts.tags {
		key, value := parseTag(tag)
		if key == "" {
			return nil, fmt.Errorf("invalid tag %q (expected key=value)", tag)
		}
		cfg.Tags[key] = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run profiles the frame loop on the calling goroutine while the collector,
// processor and optional services run alongside, then writes the report to out.
func run(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer, log zerolog.Logger) error {
	c := collector.New(cfg, log)

	var observers []processor.Observer
	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter("framescope")
		observers = append(observers, exporter)
	}

	var snd processor.Sender
	if cfg.PyroscopeURL != "" {
		snd = sender.New(sender.Config{
			PyroscopeURL: cfg.PyroscopeURL,
			AuthToken:    cfg.AuthToken,
			AppName:      cfg.AppName,
			Tags:         cfg.Tags,
		}, log)
	}
	p := processor.New(cfg, snd, log, observers...)

	g, gctx := errgroup.WithContext(ctx)
	// services live until the loop is done; the processor drains after that
	svcCtx, stopServices := context.WithCancel(gctx)
	defer stopServices()

	g.Go(func() error {
		return p.Process(gctx, c.Snapshots())
	})
	if exporter != nil {
		g.Go(func() error {
			return serveMetrics(svcCtx, cfg.MetricsAddr, exporter.Handler(), log)
		})
	}
	if opts.watch && opts.configPath != "" {
		g.Go(func() error {
			return config.Watch(svcCtx, opts.configPath, log, func(next *config.Config) {
				logger.SetDebug(next.Debug)
			})
		})
	}

	workerSnaps := make([]report.Snapshot, opts.workers)
	var workers errgroup.Group
	for i := 0; i < opts.workers; i++ {
		i := i
		workers.Go(func() error {
			snap, err := assetWorker(svcCtx, i, opts, c)
			workerSnaps[i] = snap
			return err
		})
	}

	st, work, release := loopState(opts.simulate)
	defer release()
	loopErr := gameLoop(svcCtx, st, work, opts, c)
	final := report.Take(st, "main")
	c.Publish(&final)

	workerErr := workers.Wait()
	c.Close()
	stopServices()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := errors.Join(loopErr, workerErr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if sent, failed := p.Stats(); snd != nil {
		log.Info().Int("sent", sent).Int("failed", failed).Uint64("dropped", c.Dropped()).Msg("profiles exported")
	}

	sink, err := newSink(cfg, opts.format, out)
	if err != nil {
		return err
	}
	if err := report.WriteMetrics(final.Metrics, sink); err != nil {
		return err
	}
	for i, snap := range workerSnaps {
		if opts.format == "text" {
			fmt.Fprintf(out, "\n%s\n", color.New(color.Bold).Sprintf("worker %d", i))
		}
		if err := report.WriteMetrics(snap.Metrics, sink); err != nil {
			return err
		}
	}
	return nil
}

func newSink(cfg *config.Config, format string, out io.Writer) (report.Sink, error) {
	if format == "msgpack" {
		return &render.MsgpackSink{W: out}, nil
	}
	layout, err := render.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}
	return &render.TextSink{W: out, Layout: layout, Color: !color.NoColor}, nil
}

// loopState returns the scope tree for the calling goroutine and how to spend
// time inside a scope. A simulated clock makes runs instant and repeatable.
func loopState(simulate bool) (*profiler.State, func(time.Duration), func()) {
	if simulate {
		clk := profiler.NewManualClock(time.Now())
		return profiler.NewState(profiler.WithClock(clk)), clk.Advance, func() {}
	}
	return profiler.Current(), time.Sleep, func() { profiler.Release() }
}

// gameLoop runs frames of physics, collisions and rendering. Physics only
// steps every tenth frame.
func gameLoop(ctx context.Context, st *profiler.State, work func(time.Duration), opts runOptions, c *collector.Collector) error {
	for i := 0; i < opts.frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := st.Do("frame", func() error {
			if i%10 == 0 {
				err := st.Do("physics", func() error {
					work(2 * time.Millisecond)
					return st.Do("collisions", func() error {
						work(time.Millisecond)
						return nil
					})
				})
				if err != nil {
					return err
				}
			}
			return st.Do("render", func() error {
				work(10 * time.Millisecond)
				return nil
			})
		})
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if (i+1)%opts.snapshotEvery == 0 {
			c.Capture(st, "main")
		}
	}
	return nil
}

// assetWorker loads assets on its own goroutine. Its scope tree travels through
// ctx and its report comes back as a snapshot.
func assetWorker(ctx context.Context, id int, opts runOptions, c *collector.Collector) (report.Snapshot, error) {
	st, work, release := loopState(opts.simulate)
	defer release()
	ctx = profiler.WithState(ctx, st)
	label := fmt.Sprintf("worker-%d", id)

	for i := 0; i < opts.frames; i++ {
		if err := ctx.Err(); err != nil {
			return report.Take(st, label), err
		}
		if err := loadAsset(ctx, work, i); err != nil {
			return report.Take(st, label), err
		}
		if (i+1)%opts.snapshotEvery == 0 {
			c.Capture(st, label)
		}
	}
	snap := report.Take(st, label)
	c.Publish(&snap)
	return snap, nil
}

func loadAsset(ctx context.Context, work func(time.Duration), i int) error {
	st := profiler.FromContext(ctx)
	return st.Do("load_asset", func() error {
		work(time.Millisecond)
		if err := st.Do("decode", func() error {
			work(time.Duration(1+i%3) * time.Millisecond)
			return nil
		}); err != nil {
			return err
		}
		return st.Do("upload", func() error {
			work(500 * time.Microsecond)
			return nil
		})
	})
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
