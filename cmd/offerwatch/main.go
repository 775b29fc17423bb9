package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"

	"offerwatch/internal/config"
)

const usage = `offerwatch [global flags] <command> [command flags]

commands:
  scrape        list offers for the query, extract them, append to the store
  compact       deduplicate the store and print today's new entries
  notify        compact, then notify when there are new entries
  run           scrape then notify (-every 6h repeats)
  history       print recent runs from the journal (-n 20)
  mirror        copy the whole store into the Postgres mirror
  set-password  store the mail password in the OS keychain (read from stdin, -delete removes it)

global flags:
`

type globals struct {
	dataDir   string
	cfgPath   string
	query     string
	store     string
	recipient string
	verbose   bool
}

func parseGlobals(args []string, stderr io.Writer) (globals, []string, error) {
	var g globals
	fs := flag.NewFlagSet("offerwatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.dataDir, "data-dir", envOr("OFFERWATCH_DATA_DIR", "."), "directory holding config.yml, the store and the journal")
	fs.StringVar(&g.cfgPath, "config", "", "config file (default <data-dir>/config.yml)")
	fs.StringVar(&g.query, "query", "", "search query (overrides scrape.query)")
	fs.StringVar(&g.store, "store", "", "CSV store path (overrides store.path)")
	fs.StringVar(&g.recipient, "recipient", "", "notification recipient (overrides notify.recipient)")
	fs.BoolVar(&g.verbose, "v", false, "log pipeline details to stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return g, nil, errors.New("missing command")
	}
	return g, fs.Args(), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	g, rest, err := parseGlobals(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if !g.verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(g)
	if err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.dispatch(ctx, rest[0], rest[1:]); err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
}

func setup(g globals) (*app, error) {
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := config.LoadDotEnv(".env", filepath.Join(g.dataDir, ".env")); err != nil {
		return nil, err
	}

	cfgPath := g.cfgPath
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(g.dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			return nil, fmt.Errorf("config bootstrap failed: %w", err)
		}
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.OverlayEnv(&cfg); err != nil {
		return nil, err
	}
	if g.query != "" {
		cfg.Scrape.Query = g.query
	}
	if g.store != "" {
		cfg.Store.Path = g.store
	}
	if g.recipient != "" {
		cfg.Notify.Recipient = g.recipient
	}

	cfg, res := config.NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !res.OK() {
		return nil, config.Validate(cfg)
	}

	return &app{
		cfg:       cfg,
		dataDir:   g.dataDir,
		storePath: cfg.StorePath(g.dataDir),
		out:       os.Stdout,
	}, nil
}
