package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dshills/searchsync/internal/app"
	"github.com/dshills/searchsync/internal/config"
	"github.com/dshills/searchsync/internal/mcp"
	"github.com/dshills/searchsync/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `usage: searchsync [--config file] [--debug] <command> [flags]

commands:
  sync     load a job's rows into its search index
  zone     resolve the delivery zone for a coordinate
  status   list recent sync runs from the ledger
  serve    run the MCP server on stdio
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "--version" {
		fmt.Fprintf(stdout, "searchsync\n")
		fmt.Fprintf(stdout, "Version: %s\n", version)
		fmt.Fprintf(stdout, "Build Time: %s\n", buildTime)
		fmt.Fprintf(stdout, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(stdout, "SQLite Driver: %s\n", storage.DriverName)
		return 0
	}

	global := flag.NewFlagSet("searchsync", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", os.Getenv("SEARCHSYNC_CONFIG"), "path to a YAML config file")
	debug := global.Bool("debug", false, "enable debug logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	// stdout is reserved for results and the MCP protocol
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	var err error
	switch cmd {
	case "sync":
		err = runSync(ctx, *configPath, rest, stdout, stderr, logger)
	case "zone":
		err = runZone(ctx, *configPath, rest, stdout, stderr, logger)
	case "status":
		err = runStatus(ctx, *configPath, rest, stdout, stderr, logger)
	case "serve":
		err = runServe(ctx, *configPath, logger)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		global.Usage()
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		return 1
	}
	return 0
}

func open(ctx context.Context, configPath string, logger *slog.Logger) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func runSync(ctx context.Context, configPath string, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var req app.SyncRequest
	fs.StringVar(&req.Job, "job", "", "job to run (e.g. food, ecom, food_stores)")
	fs.StringVar(&req.Job, "module", "", "alias for --job")
	fs.StringVar(&req.Mode, "mode", "", "write mode: full or patch (default from config)")
	fs.BoolVar(&req.Embed, "embed", false, "generate embeddings")
	fs.StringVar(&req.Strategy, "strategy", "", "read strategy: stream, offset or keyset")
	fs.IntVar(&req.BatchSize, "batch", 0, "rows per batch")
	fs.BoolVar(&req.Resume, "resume", false, "resume from the last unfinished run")
	fs.StringVar(&req.ResumeToken, "token", "", "resume from an explicit token")
	fs.BoolVar(&req.Setup, "setup", false, "create the index if it does not exist")
	fs.BoolVar(&req.Recreate, "recreate", false, "drop and recreate the index first")
	fs.BoolVar(&req.SkipPreflight, "skip-preflight", false, "skip dependency checks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Job == "" {
		return fmt.Errorf("sync: --job is required")
	}

	a, err := open(ctx, configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.Sync(ctx, req)
	if sum != nil {
		fmt.Fprintln(stdout, sum.String())
		if sum.Stats.Failed > 0 {
			logger.Warn("some documents failed", "failed", sum.Stats.Failed, "run_id", sum.RunID)
		}
	}
	return err
}

func runZone(ctx context.Context, configPath string, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("zone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !isSet(fs, "lat") || !isSet(fs, "lon") {
		return fmt.Errorf("zone: --lat and --lon are required")
	}

	a, err := open(ctx, configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	id, found, err := a.ResolveZone(ctx, *lat, *lon)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(stdout, "no zone")
		return nil
	}
	fmt.Fprintln(stdout, id)
	return nil
}

func runStatus(ctx context.Context, configPath string, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	job := fs.String("job", "", "only runs of this job")
	limit := fs.Int("limit", storage.DefaultListLimit, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := open(ctx, configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.Runs(ctx, *job, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tJOB\tINDEX\tSTATUS\tPROCESSED\tFAILED\tSTARTED\tTOKEN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Job, r.Index, r.Status, r.Processed, r.Failed,
			r.StartedAt.Local().Format(time.DateTime), r.Token)
	}
	return tw.Flush()
}

func runServe(ctx context.Context, configPath string, logger *slog.Logger) error {
	a, err := open(ctx, configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("searchsync starting", "version", version, "jobs", strings.Join(a.Jobs(), ","))
	return mcp.NewServer(a, version, logger).Serve(ctx)
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
