// Package main is the intently CLI entry point.
package main

import (
	"bufio"
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
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/intently/internal/artifact"
	"github.com/hyperjump/intently/internal/builder"
	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/internal/cli"
	"github.com/hyperjump/intently/internal/config"
	"github.com/hyperjump/intently/internal/corpus"
	"github.com/hyperjump/intently/internal/embedding"
	"github.com/hyperjump/intently/internal/metrics"
	"github.com/hyperjump/intently/internal/server"
	"github.com/hyperjump/intently/internal/watcher"
	"github.com/hyperjump/intently/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/intently/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "build":
		runBuild()
	case "classify":
		runClassify()
	case "inspect":
		runInspect()
	case "version", "--version", "-v":
		fmt.Printf("intently version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger; it exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("artifact", cfg.Artifact.Path),
		zap.String("provider", cfg.Embedding.Provider),
	)

	metrics.Register()
	embedder, err := embedding.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", zap.Error(err))
	}
	defer embedder.Close()

	srv := server.NewServer(embedder, cfg, logger)
	if err := srv.LoadArtifact(cfg.Artifact.Path); err != nil {
		// Serve 503 on /classify until a valid artifact appears.
		logger.Warn("no index loaded at startup", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Artifact.WatchOrDefault() {
		w := watcher.NewWatcher(cfg.Artifact.Path, srv.LoadArtifact, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusPath := fs.String("corpus", "", "labeled corpus (.json, .yaml, .xlsx, .db); default from config")
	outPath := fs.String("out", "", "artifact output path; default from config")
	sheet := fs.String("sheet", "", "spreadsheet sheet (xlsx corpus)")
	table := fs.String("table", "", "table name (sqlite corpus)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	opts := corpus.Options{Sheet: cfg.Corpus.Sheet, Table: cfg.Corpus.Table}
	if *sheet != "" {
		opts.Sheet = *sheet
	}
	if *table != "" {
		opts.Table = *table
	}
	src := firstNonEmpty(*corpusPath, cfg.Corpus.Path)
	dst := firstNonEmpty(*outPath, cfg.Artifact.Path)
	if src == "" {
		fmt.Fprintln(os.Stderr, "No corpus given: use --corpus or set corpus.path in config")
		os.Exit(1)
	}

	examples, err := corpus.Load(src, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load corpus: %v\n", err)
		os.Exit(1)
	}
	logger.Info("corpus loaded", zap.String("path", src), zap.Int("examples", len(examples)))

	embedder, err := embedding.New(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize embedder: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()

	b := builder.New(embedder, builder.WithLogger(logger), builder.WithModel(cfg.Embedding.Model))
	a, err := b.Build(context.Background(), examples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	if err := artifact.Save(dst, a); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save artifact: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Built index %s: %d entries, %d dimensions, %d labels -> %s\n",
		a.ID, a.Size(), a.Dimensions, len(corpus.Labels(examples)), dst)
}

// printClassifyUsage prints classify subcommand usage.
func printClassifyUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: intently classify [flags] [query]\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Without a query, one query is read per line from stdin.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  intently classify where is my luggage
  intently classify --explain --k 3 "my flight was cancelled"
  intently classify --server http://localhost:5000 --output json "refund please"
  cat queries.txt | intently classify --output json
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
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

// classifyRequest is the body of POST /api/v1/classify.
type classifyRequest struct {
	Query     string   `json:"query"`
	K         *int     `json:"k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Explain   bool     `json:"explain,omitempty"`
}

// classifyFunc classifies one query.
type classifyFunc func(ctx context.Context, query string) (classifier.Result, error)

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = classify locally against the artifact)")
	artifactPath := fs.String("artifact", "", "artifact path; default from config")
	k := fs.Int("k", classifier.DefaultK, "number of neighbors (default from config)")
	threshold := fs.Float64("threshold", classifier.DefaultThreshold, "minimum confidence (default from config)")
	explain := fs.Bool("explain", false, "show the neighbors that voted")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printClassifyUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	req := classifyRequest{Explain: *explain}
	if set["k"] {
		req.K = k
	}
	if set["threshold"] {
		req.Threshold = threshold
	}

	var classify classifyFunc
	if *serverURL != "" {
		classify = func(ctx context.Context, query string) (classifier.Result, error) {
			r := req
			r.Query = query
			return classifyViaHTTP(ctx, *serverURL, &r)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		local, closeFn, err := newLocalClassifier(cfg, firstNonEmpty(*artifactPath, cfg.Artifact.Path), req, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Classify failed: %v\n", err)
			os.Exit(1)
		}
		defer closeFn()
		classify = local
	}

	ctx := context.Background()
	if query := buildQuery(fs.Args()); query != "" {
		if err := classifyAndWrite(ctx, os.Stdout, classify, query, format); err != nil {
			fmt.Fprintf(os.Stderr, "Classify failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := classifyLines(ctx, os.Stdin, os.Stdout, classify, format); err != nil {
		fmt.Fprintf(os.Stderr, "Classify failed: %v\n", err)
		os.Exit(1)
	}
}

// newLocalClassifier loads the artifact and embedder and returns a classifyFunc using them.
func newLocalClassifier(cfg *config.Config, path string, req classifyRequest, logger *zap.Logger) (classifyFunc, func(), error) {
	a, err := artifact.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if a.Dimensions != cfg.Embedding.Dimensions {
		return nil, nil, fmt.Errorf("artifact has %d dimensions, embedder is configured for %d", a.Dimensions, cfg.Embedding.Dimensions)
	}
	c, err := a.Classifier()
	if err != nil {
		return nil, nil, err
	}
	embedder, err := embedding.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	k, threshold := cfg.Classifier.K, cfg.Classifier.ThresholdOrDefault()
	if req.K != nil {
		k = *req.K
	}
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	opts := []classifier.Option{
		classifier.WithK(k),
		classifier.WithThreshold(threshold),
		classifier.WithNeighbors(req.Explain),
	}
	fn := func(ctx context.Context, query string) (classifier.Result, error) {
		emb, err := embedder.Embed(ctx, query)
		if err != nil {
			return classifier.Result{}, err
		}
		return c.Classify(emb, opts...)
	}
	return fn, func() { _ = embedder.Close() }, nil
}

func classifyAndWrite(ctx context.Context, w io.Writer, classify classifyFunc, query string, format cli.OutputFormat) error {
	res, err := classify(ctx, query)
	if err != nil {
		return err
	}
	return cli.WriteClassification(w, query, res, format)
}

// classifyLines classifies each non-blank line of r. A failed query is reported on w
// and does not stop the loop.
func classifyLines(ctx context.Context, r io.Reader, w io.Writer, classify classifyFunc, format cli.OutputFormat) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if err := classifyAndWrite(ctx, w, classify, query, format); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		if format == cli.OutputText {
			fmt.Fprintln(w)
		}
	}
	return scanner.Err()
}

func classifyViaHTTP(ctx context.Context, serverURL string, req *classifyRequest) (classifier.Result, error) {
	var result classifier.Result
	body, err := json.Marshal(req)
	if err != nil {
		return result, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/classify", bytes.NewReader(body))
	if err != nil {
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return result, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func runInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for the default artifact path)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path := fs.Arg(0)
	if path == "" {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		path = cfg.Artifact.Path
	}
	a, err := artifact.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load artifact: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteArtifactInfo(os.Stdout, cli.NewArtifactInfo(a), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printUsage() {
	fmt.Println(`intently - intent classification by nearest labeled examples

Usage:
  intently server [flags]               Start the HTTP server
  intently build [flags]                Embed a labeled corpus into an index artifact
  intently classify [flags] [query]     Classify a query (or stdin lines)
  intently inspect [flags] [artifact]   Show artifact metadata and label counts
  intently version                      Show version
  intently help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/intently/config.yaml)
  --debug            Enable debug logging

Build Flags:
  --config string    Config file path
  --corpus string    Corpus file: .json, .yaml, .xlsx or .db (default: corpus.path)
  --out string       Artifact path (default: artifact.path)
  --sheet string     Sheet name for .xlsx corpora
  --table string     Table name for SQLite corpora (default: examples)

Classify Flags:
  --config string     Config file path
  --server string     Server URL; empty classifies locally
  --artifact string   Artifact path (default: artifact.path)
  --k int             Number of neighbors (default: classifier.k)
  --threshold float   Minimum confidence (default: classifier.threshold)
  --explain           Show the neighbors that voted
  --output string     Output format: text or json (default: text)

Examples:
  intently build --corpus policy.json
  intently server
  intently classify "I lost my suitcase"
  intently classify --server http://localhost:5000 --explain "cancel my flight"
  intently inspect --output json`)
}
