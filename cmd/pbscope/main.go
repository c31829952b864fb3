package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dusk-indust/pbscope/internal/api"
	"github.com/dusk-indust/pbscope/internal/cache"
	"github.com/dusk-indust/pbscope/internal/config"
	"github.com/dusk-indust/pbscope/internal/discovery"
	"github.com/dusk-indust/pbscope/internal/mcptools"
	"github.com/dusk-indust/pbscope/internal/report"
	"github.com/spf13/pflag"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir string
	JSON      bool
	Verbose   bool
	Timeout   time.Duration
	Workers   int
	ServeMCP  bool
	MCPAddr   string
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

// errTimeout is returned when discovery does not finish within --timeout.
var errTimeout = errors.New("discovery timed out")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cliFlags

	fs := pflag.NewFlagSet("pbscope", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing pbscope.yml")
	fs.BoolVar(&flags.JSON, "json", false, "print the permission model as JSON")
	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "show per-probe progress and debug logs")
	fs.DurationVar(&flags.Timeout, "timeout", 0, "give up on discovery after this long (0 waits indefinitely)")
	fs.IntVar(&flags.Workers, "workers", 1, "number of probes in flight at once")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over streamable HTTP on this address instead of stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = "debug"
	}
	if fs.Changed("workers") {
		cfg.Discovery.Workers = flags.Workers
	}
	logger := cfg.NewLogger(stderr)

	token := cfg.ResolveToken()
	client := api.NewHTTPClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithToken(token),
		api.WithAPIVersion(cfg.API.Version),
		api.WithTimeout(cfg.API.Timeout),
	)

	opts := []discovery.RunnerOption{
		discovery.WithInterval(cfg.Discovery.ProbeInterval),
		discovery.WithWorkers(cfg.Discovery.Workers),
	}
	if flags.Verbose && !flags.ServeMCP && flags.MCPAddr == "" {
		opts = append(opts, discovery.WithProgress(progressPrinter(stderr)))
	}
	svc := discovery.NewService(client, logger, opts...)

	if flags.ServeMCP || flags.MCPAddr != "" {
		return serveMCP(ctx, cfg, svc, client, token, logger, flags.MCPAddr)
	}

	perms, err := discoverWithin(ctx, svc, flags.Timeout)
	if err != nil {
		return err
	}

	if flags.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.NewExport(perms, time.Now()))
	}
	_, err = io.WriteString(stdout, report.FormatText(perms))
	return err
}

// progressPrinter writes one line per progress event. Events may arrive
// from several workers.
func progressPrinter(w io.Writer) func(discovery.ProgressEvent) {
	var mu sync.Mutex
	return func(ev discovery.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, discovery.FormatProgress(ev))
	}
}

// discoverWithin runs one discovery and waits at most timeout for it. The
// engine does not observe cancellation, so on expiry the run is abandoned
// and its late result discarded. A zero timeout waits indefinitely.
func discoverWithin(ctx context.Context, d cache.Discoverer, timeout time.Duration) (*discovery.Permissions, error) {
	type result struct {
		perms *discovery.Permissions
		err   error
	}
	done := make(chan result, 1)
	go func() {
		perms, err := d.Discover(ctx)
		done <- result{perms, err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-done:
		return r.perms, r.err
	case <-expired:
		return nil, fmt.Errorf("%w after %s", errTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func serveMCP(ctx context.Context, cfg *config.Config, svc *discovery.Service, client api.Client, token string, logger *slog.Logger, addr string) error {
	var store *cache.Store
	if cfg.Cache.Enabled {
		store = cache.NewStore(cfg.Cache.TTL, cfg.Cache.MaxSize)
	}
	permSvc := mcptools.NewPermissionService(svc, client, store, cache.CredentialKey(token), logger)
	server := mcptools.NewPermissionsMCPServer(permSvc)

	if addr != "" {
		logger.Info("serving MCP over HTTP", "component", "cli", "addr", addr)
		return mcptools.RunMCPServerHTTP(ctx, server, addr)
	}
	logger.Info("serving MCP on stdio", "component", "cli")
	return mcptools.RunMCPServerStdio(ctx, server)
}
