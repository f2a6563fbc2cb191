// Package main provides wpregress, a browser regression runner for WordPress plugin admin screens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/pushqa/wpregress/pkg/browser"
	"github.com/pushqa/wpregress/pkg/config"
	"github.com/pushqa/wpregress/pkg/git"
	"github.com/pushqa/wpregress/pkg/metrics"
	"github.com/pushqa/wpregress/pkg/notify"
	"github.com/pushqa/wpregress/pkg/progress"
	"github.com/pushqa/wpregress/pkg/render"
	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/runner"
	"github.com/pushqa/wpregress/pkg/scenario"
	"github.com/pushqa/wpregress/pkg/status"
	"github.com/pushqa/wpregress/pkg/watch"
	"github.com/pushqa/wpregress/pkg/web"
)

// opts holds all command-line options. Zero values leave the config file setting in place.
type opts struct {
	ConfigDir string `long:"config-dir" env:"WPREGRESS_CONFIG_DIR" description:"config directory (default ~/.config/wpregress)"`
	BaseURL   string `short:"b" long:"base-url" description:"site under test, overrides base_url"`
	Browser   string `long:"browser" choice:"chromium" choice:"firefox" choice:"webkit" description:"browser engine"`
	Headed    bool   `long:"headed" description:"show the browser window"`
	Timeout   int    `short:"t" long:"timeout" description:"per-candidate timeout in ms"`
	Parallel  int    `short:"j" long:"parallel" description:"scenarios to run in parallel"`
	Filter    string `short:"f" long:"filter" description:"run only scenarios whose id, feature or name matches the glob"`
	Watch     bool   `short:"w" long:"watch" description:"re-run changed scenario files until interrupted"`
	Serve     bool   `short:"s" long:"serve" description:"start web dashboard for live progress"`
	Port      int    `short:"p" long:"port" default:"8080" description:"web dashboard port"`
	Install   bool   `long:"install" description:"install playwright driver and the configured browser, then exit"`
	Show      string `long:"show" value-name:"report.json" description:"render a saved JSON report and exit"`
	Debug     bool   `short:"d" long:"debug" description:"trace every selector candidate"`
	NoColor   bool   `long:"no-color" description:"disable color output"`
	Version   bool   `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

// exit codes.
const (
	exitFailed = 1 // at least one scenario failed or was canceled
	exitError  = 2 // configuration, loading or browser error
)

func main() {
	fmt.Printf("wpregress %s\n", revision)

	var o opts
	parser := flags.NewParser(&o, flags.Default)
	parser.Usage = "[OPTIONS] [scenario files or dirs...]"

	args, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(exitError)
	}
	if o.Version {
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	tty := quietTTY(os.Stdin)

	ok, err := run(ctx, o, args)
	tty.restore()
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	if !ok {
		os.Exit(exitFailed)
	}
}

// run executes the command and reports whether every scenario passed.
func run(ctx context.Context, o opts, paths []string) (bool, error) {
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return false, fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, o)
	colors := progress.NewColors(cfg.Colors)

	if o.Show != "" {
		return showReport(o.Show, o.NoColor)
	}

	if o.Install {
		colors.Info().Printf("installing playwright driver and %s\n", cfg.Browser)
		if err := browser.Install(cfg.Browser); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := cfg.LoadEnv(); err != nil {
		return false, err
	}

	if len(paths) == 0 {
		paths = []string{cfg.ScenariosDir}
	}
	list, err := loadScenarios(paths, o.Filter)
	if err != nil {
		return false, err
	}

	runID := runner.NewRunID()
	baseLog, err := progress.NewLogger(progress.Config{
		RunID: runID, Dir: cfg.ReportsDir, BaseURL: cfg.BaseURL, Browser: cfg.Browser, NoColor: o.NoColor,
	}, colors)
	if err != nil {
		return false, fmt.Errorf("create progress logger: %w", err)
	}
	defer baseLog.Close()

	notifier, err := notify.New(cfg.NotifyParams, baseLog)
	if err != nil {
		return false, fmt.Errorf("create notifier: %w", err)
	}

	m := metrics.New()
	var log runner.Logger = baseLog
	var listeners []runner.Listener
	if o.Serve {
		bc, err := web.NewDashboard(web.DashboardConfig{
			BaseLog: baseLog, Port: o.Port, BaseURL: cfg.BaseURL, Browser: cfg.Browser, Metrics: m.Handler(),
		}).Start(ctx)
		if err != nil {
			return false, err
		}
		log, listeners = bc, append(listeners, bc)
	}

	launcher, err := browser.Launch(browser.Config{
		Browser: cfg.Browser, Headless: cfg.Headless, SlowMoMs: cfg.SlowMoMs,
		NavigationTimeoutMs: cfg.NavigationTimeoutMs, BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return false, fmt.Errorf("%w (run with --install to fetch browsers)", err)
	}
	defer func() {
		if cerr := launcher.Close(); cerr != nil {
			baseLog.Warn("close browser: %v", cerr)
		}
	}()

	x := &executor{
		cfg: cfg, colors: colors, log: log, baseLog: baseLog, listeners: listeners, metrics: m,
		notifier: notifier, noColor: o.NoColor, debug: o.Debug, gitPath: paths[0],
		sessions: func() (runner.Session, error) {
			s, err := launcher.NewSession()
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}

	colors.Info().Printf("running %d scenario(s) against %s with %s\n", len(list), cfg.BaseURL, cfg.Browser)
	colors.Info().Printf("progress log: %s\n\n", baseLog.Path())

	sum := x.execute(ctx, runID, list)
	if !o.Watch || ctx.Err() != nil {
		return sum.OK(), nil
	}
	return true, x.watch(ctx, paths, o.Filter)
}

// executor runs scenario batches and publishes their reports.
type executor struct {
	cfg       *config.Config
	colors    *progress.Colors
	log       runner.Logger
	baseLog   *progress.Logger
	listeners []runner.Listener
	metrics   *metrics.Metrics
	notifier  *notify.Service
	sessions  runner.SessionFactory
	noColor   bool
	debug     bool
	gitPath   string
}

func (x *executor) execute(ctx context.Context, runID string, list []*scenario.Scenario) *report.Summary {
	ropts := []runner.Option{runner.WithMetrics(x.metrics)}
	for _, l := range x.listeners {
		ropts = append(ropts, runner.WithListener(l))
	}
	if x.debug {
		ropts = append(ropts, runner.WithTrace(x.baseLog))
	}

	r := runner.New(runner.Config{
		RunID:            runID,
		BaseURL:          x.cfg.BaseURL,
		Browser:          x.cfg.Browser,
		Parallel:         x.cfg.Parallel,
		CandidateTimeout: ms(x.cfg.CandidateTimeoutMs),
		StepTimeout:      ms(x.cfg.StepTimeoutMs),
		ScenarioTimeout:  ms(x.cfg.ScenarioTimeoutMs),
	}, x.sessions, x.log, ropts...)

	sum, err := r.Run(ctx, list)
	if err != nil {
		x.baseLog.Warn("run interrupted: %v", err)
	}

	if info, gerr := git.Describe(x.gitPath); gerr == nil {
		sum.Git = &info
	}

	jsonPath, err := sum.WriteJSON(x.cfg.ReportsDir)
	if err != nil {
		x.baseLog.Error("write json report: %v", err)
	}
	mdPath, err := sum.WriteMarkdown(x.cfg.ReportsDir)
	if err != nil {
		x.baseLog.Error("write markdown report: %v", err)
	}

	if out, rerr := render.Markdown(sum.Markdown(), render.Options{NoColor: x.noColor}); rerr == nil {
		fmt.Println(out)
	} else {
		x.baseLog.Warn("render report: %v", rerr)
	}
	if jsonPath != "" {
		x.colors.Info().Printf("reports: %s, %s\n", jsonPath, mdPath)
	}

	// notifications go out even when the run was interrupted
	x.notifier.Send(context.WithoutCancel(ctx), notify.FromSummary(sum, mdPath))
	return sum
}

// watch re-runs changed scenario files until ctx is canceled.
func (x *executor) watch(ctx context.Context, paths []string, filter string) error {
	w, err := watch.New(watchDirs(paths), watch.DefaultDebounce, x.baseLog)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	x.colors.Info().Printf("watching %v for changes, press Ctrl+C to exit\n", w.Dirs())

	return w.Run(ctx, func(ctx context.Context, files []string) {
		list, err := reloadChanged(files, filter)
		if err != nil {
			x.baseLog.Error("reload scenarios: %v", err)
			return
		}
		if len(list) == 0 {
			x.baseLog.PrintPhase(status.PhaseSetup, "changed files match no scenario for filter %q, skipping", filter)
			return
		}
		x.execute(ctx, runner.NewRunID(), list)
	})
}

// reloadChanged loads changed scenario files and applies the filter.
// unlike loadScenarios, an empty result is not an error: a change outside the filter is ignored.
func reloadChanged(files []string, filter string) ([]*scenario.Scenario, error) {
	list, err := scenario.LoadPaths(files...)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	if filter != "" {
		list = scenario.Filter(list, filter)
	}
	return list, nil
}

func loadScenarios(paths []string, filter string) ([]*scenario.Scenario, error) {
	list, err := reloadChanged(paths, filter)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no scenarios found in %v (filter %q)", paths, filter)
	}
	return list, nil
}

// watchDirs maps scenario paths to directories, files are watched through their parent.
func watchDirs(paths []string) []string {
	seen := map[string]bool{}
	var res []string
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if !seen[dir] {
			seen[dir] = true
			res = append(res, dir)
		}
	}
	return res
}

func applyOverrides(cfg *config.Config, o opts) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.Browser != "" {
		cfg.Browser = o.Browser
	}
	if o.Headed {
		cfg.Headless = false
	}
	if o.Timeout > 0 {
		cfg.CandidateTimeoutMs = o.Timeout
	}
	if o.Parallel > 0 {
		cfg.Parallel = o.Parallel
	}
}

func showReport(path string, noColor bool) (bool, error) {
	sum, err := report.Load(path)
	if err != nil {
		return false, err
	}
	out, err := render.Markdown(sum.Markdown(), render.Options{NoColor: noColor})
	if err != nil {
		return false, fmt.Errorf("render report: %w", err)
	}
	fmt.Println(out)
	return sum.OK(), nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
