// Package main is the kbase CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/kbase/internal/cli"
	"github.com/hyperjump/kbase/internal/config"
	"github.com/hyperjump/kbase/internal/embedding"
	"github.com/hyperjump/kbase/internal/extract"
	"github.com/hyperjump/kbase/internal/indexer"
	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/search"
	"github.com/hyperjump/kbase/internal/server"
	"github.com/hyperjump/kbase/internal/snapshot"
	"github.com/hyperjump/kbase/internal/storage"
	"github.com/hyperjump/kbase/internal/watcher"
	"github.com/hyperjump/kbase/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kbase/config.yaml"

// loadConfig loads and validates config from path. When path is the default, a
// config.yaml in the current directory takes precedence so commands run from a project
// directory use the project's settings. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "build":
		runBuild()
	case "query":
		runQuery()
	case "server":
		runServer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kbase version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// flagsFirst moves everything from the first flag onwards to the front so flags may
// follow positional arguments ("kbase query opening hours --k 5").
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// components holds the services shared by the commands.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *snapshot.Store
	catalog storage.Catalog // nil when the catalog cannot be opened
}

func newComponents(cfg *config.Config, logger *zap.Logger) *components {
	c := &components{
		cfg:    cfg,
		logger: logger,
		store:  snapshot.NewStore(cfg.Storage.IndexPath(), cfg.Storage.MetadataPath(), snapshot.WithLogger(logger)),
	}
	catalog, err := storage.NewSQLiteCatalog(cfg.Storage.CatalogPath)
	if err != nil {
		logger.Warn("build catalog unavailable", zap.String("path", cfg.Storage.CatalogPath), zap.Error(err))
	} else {
		c.catalog = catalog
	}
	return c
}

func (c *components) Close() {
	if c.catalog != nil {
		_ = c.catalog.Close()
	}
}

func (c *components) newEmbedder() (embedding.Embedder, error) {
	return embedding.New(c.cfg.Embedding, c.logger)
}

func (c *components) newEngine() *search.Engine {
	return search.NewEngine(
		search.SnapshotLoader(c.store, c.cfg.Retrieval.IndexType, c.newEmbedder),
		search.WithLogger(c.logger),
		search.WithDefaultK(c.cfg.Retrieval.TopK),
	)
}

func (c *components) newBuilder(emb embedding.Embedder) (*indexer.Builder, error) {
	chunker, err := indexer.NewChunker(c.cfg.Chunking.MaxLength, c.cfg.Chunking.OverlapOrDefault(), c.cfg.Chunking.ParagraphSeparator)
	if err != nil {
		return nil, err
	}
	opts := []indexer.BuilderOption{
		indexer.WithLogger(c.logger),
		indexer.WithExtractor(extract.NewExtractor()),
	}
	if c.catalog != nil {
		opts = append(opts, indexer.WithCatalog(c.catalog))
	}
	return indexer.NewBuilder(emb, c.store, chunker, opts...), nil
}

// statusReport collects engine stats, catalog history and disk usage without a server.
func (c *components) statusReport(ctx context.Context, engine *search.Engine) *cli.StatusReport {
	_ = engine.Init(ctx)
	report := &cli.StatusReport{
		Engine: engine.Stats(),
		Config: c.cfg.Summary(),
	}
	if c.catalog != nil {
		if n, err := c.catalog.CountBuilds(ctx); err == nil {
			report.Builds = n
		}
		if latest, err := c.catalog.LatestBuild(ctx); err == nil {
			report.LatestBuild = latest
		}
	}
	if n, err := storage.SnapshotUsage(c.cfg.Storage.SnapshotDir, c.cfg.Storage.CatalogPath); err == nil {
		report.DiskUsageBytes = n
	}
	return report
}

func setup(configPath string, debug bool) (*components, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))
	return newComponents(cfg, logger), resolved
}

// resolveSources returns the source documents to build from: args when given, otherwise
// the configured list. Directories are expanded to the supported files inside them.
func resolveSources(cfg *config.Config, args []string) ([]string, error) {
	sources := cfg.Sources.Files
	if len(args) > 0 {
		sources = make([]string, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return nil, err
			}
			sources = append(sources, abs)
		}
	}
	return indexer.ExpandSources(sources)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	watch := fs.Bool("watch", false, "rebuild the whole snapshot whenever a source changes")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c, _ := setup(*configPath, *debug)
	defer c.logger.Sync()
	defer c.Close()

	emb, err := c.newEmbedder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize embedder: %v\n", err)
		os.Exit(1)
	}
	defer emb.Close()
	builder, err := c.newBuilder(emb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize builder: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := func(ctx context.Context) error {
		sources, err := resolveSources(c.cfg, fs.Args())
		if err != nil {
			return err
		}
		report, err := builder.BuildFromFiles(ctx, sources)
		if report != nil {
			_ = cli.WriteBuildReport(os.Stdout, report, format)
		}
		return err
	}

	if err := build(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	watched := c.cfg.Sources.Files
	if fs.NArg() > 0 {
		watched = fs.Args()
	}
	w := watcher.NewWatcher(watched, extract.SupportedExtensions(), func(ctx context.Context) {
		if err := build(ctx); err != nil {
			c.logger.Error("rebuild failed", zap.Error(err))
		}
	}, watcher.WithLogger(c.logger))
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start watcher: %v\n", err)
		os.Exit(1)
	}
	c.logger.Info("watching sources for changes", zap.Strings("sources", watched))
	<-ctx.Done()
	w.Stop()
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the snapshot directly)")
	k := fs.Int("k", 0, "number of fragments to retrieve (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kbase query [flags] <text>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	text := cli.JoinArgs(fs.Args())
	if text == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var result *models.QueryResult
	if *serverURL != "" {
		result, err = queryViaHTTP(*serverURL, text, *k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		c, _ := setup(*configPath, false)
		defer c.logger.Sync()
		defer c.Close()
		engine := c.newEngine()
		defer engine.Close()
		result = engine.Query(context.Background(), text, *k)
	}

	if err := cli.WriteQueryResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if result.Status == models.StatusUnavailable {
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL, text string, k int) (*models.QueryResult, error) {
	body, err := json.Marshal(models.QueryRequest{Query: text, K: k})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Status == "" {
		return nil, errors.New("decode response: missing status")
	}
	return &result, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	c, resolved := setup(*configPath, *debug)
	defer c.logger.Sync()
	defer c.Close()
	c.logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", c.cfg.Debug))

	engine := c.newEngine()
	defer engine.Close()
	// Load eagerly so a missing snapshot is reported at startup; queries then answer unavailable.
	_ = engine.Init(context.Background())

	srv := server.NewServer(engine, c.catalog, c.cfg, c.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	c.logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the snapshot and catalog directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *cli.StatusReport
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		c, _ := setup(*configPath, false)
		defer c.logger.Sync()
		defer c.Close()
		engine := c.newEngine()
		defer engine.Close()
		status = c.statusReport(context.Background(), engine)
	}

	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*cli.StatusReport, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s cli.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`kbase - semantic retrieval over reference documents

Usage:
  kbase build [flags] [files...]  Build the snapshot from the configured (or given) sources
  kbase query [flags] <text>      Retrieve the fragments closest to text
  kbase server [flags]            Start the HTTP server
  kbase status [flags]            Show snapshot, engine and build history
  kbase version                   Show version
  kbase help                      Show this help

Build Flags:
  --config string    Config file path (default: /usr/local/etc/kbase/config.yaml, or ./config.yaml)
  --watch            Keep running and rebuild the whole snapshot when a source changes
  --output string    Output format: text or json (default: text)
  --debug            Enable debug logging

Query Flags:
  --config string    Config file path
  --k int            Number of fragments to retrieve (default from config)
  --server string    Query a running server instead of loading the snapshot directly
  --output string    Output format: text or json (default: text)

Server Flags:
  --config string    Config file path
  --debug            Enable debug logging

Status Flags:
  --config string    Config file path
  --server string    Ask a running server instead of reading files directly
  --output string    Output format: text or json (default: text)

Examples:
  kbase build
  kbase build --watch docs/faq.md docs/policies
  kbase query what are the opening hours
  kbase query --k 5 --output json "refund policy"
  kbase server
  kbase status --output json`)
}
