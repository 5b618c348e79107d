package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crewkit/crewkit/assign"
	"github.com/crewkit/crewkit/config"
	"github.com/crewkit/crewkit/crew"
	"github.com/crewkit/crewkit/internal/cache"
	"github.com/crewkit/crewkit/internal/metrics"
	"github.com/crewkit/crewkit/internal/telemetry"
	"github.com/crewkit/crewkit/llm"
	"github.com/crewkit/crewkit/llm/embedding"
	"github.com/crewkit/crewkit/llm/providers/ollama"
	"github.com/crewkit/crewkit/modelserver"
	"github.com/crewkit/crewkit/rag"
	"github.com/crewkit/crewkit/store"
)

// stringSliceFlag collects a repeatable --flag value.
type stringSliceFlag []string

func (f *stringSliceFlag) String() string { return strings.Join(*f, ",") }

func (f *stringSliceFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newProvider(cfg *config.Config, logger *zap.Logger) *ollama.Provider {
	return ollama.New(ollama.Config{
		BaseURL:           cfg.LLM.BaseURL,
		DefaultModel:      cfg.LLM.DefaultModel,
		FallbackModel:     cfg.LLM.FallbackModel,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, logger)
}

// ensureModelServer makes sure a completion endpoint is answering,
// launching the configured server when auto-start is on. The returned
// cleanup stops only a process this invocation started.
func ensureModelServer(ctx context.Context, cfg *config.Config, provider *ollama.Provider, logger *zap.Logger) (func(), error) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := provider.HealthCheck(probeCtx); err == nil {
		return func() {}, nil
	}

	if !cfg.ModelServer.AutoStart || cfg.ModelServer.Command == "" {
		return func() {}, fmt.Errorf("model server at %s is not answering and auto_start is off", cfg.LLM.BaseURL)
	}

	launcher := modelserver.NewLauncher(modelserver.Config{
		Command:      cfg.ModelServer.Command,
		Args:         cfg.ModelServer.Args,
		HealthURL:    strings.TrimRight(cfg.LLM.BaseURL, "/") + "/v1/models",
		ReadyTimeout: cfg.ModelServer.ReadyTimeout,
	}, logger)

	if err := launcher.Start(ctx); err != nil {
		return func() {}, err
	}
	if err := launcher.WaitReady(ctx); err != nil {
		launcher.Stop()
		return func() {}, err
	}
	return func() { launcher.Stop() }, nil
}

// startMetrics exposes /metrics when enabled. The listener runs for
// the life of the process.
func startMetrics(cfg config.MetricsConfig, logger *zap.Logger) *metrics.Collector {
	collector := metrics.NewCollector("crewkit", nil)
	if !cfg.Enabled {
		return collector
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", cfg.Addr))
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
			logger.Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
	return collector
}

func newMatcher(cfg *config.Config, provider llm.Provider, collector *metrics.Collector, logger *zap.Logger) assign.Matcher {
	if cfg.Assign.Matcher == "rule" {
		return assign.NewRuleMatcher()
	}
	return assign.NewLLMMatcher(provider, assign.LLMMatcherConfig{
		Model:        cfg.LLM.DefaultModel,
		FallbackName: cfg.Assign.DefaultAgent,
		MaxTokens:    cfg.Assign.MaxTokens,
		Temperature:  cfg.Assign.Temperature,
	}, logger).WithCollector(collector)
}

func runCrew(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting crewkit",
		zap.String("version", Version),
		zap.Int("agents", len(cfg.Agents)),
		zap.Int("tasks", len(cfg.Tasks)))

	if len(cfg.Agents) == 0 {
		fatal("No agents configured; add an agents section to the config file")
	}
	if len(cfg.Tasks) == 0 {
		fatal("No tasks configured; add a tasks section to the config file")
	}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		otelProviders.Shutdown(ctx)
	}()

	collector := startMetrics(cfg.Metrics, logger)

	ctx, stop := signalContext()
	defer stop()

	provider := newProvider(cfg, logger)
	stopServer, err := ensureModelServer(ctx, cfg, provider, logger)
	if err != nil {
		fatal("Model server unavailable: %v", err)
	}
	defer stopServer()

	roster, err := assign.NewRoster(cfg.Agents...)
	if err != nil {
		fatal("Invalid roster: %v", err)
	}

	resolver, err := assign.NewResolver(roster,
		newMatcher(cfg, provider, collector, logger),
		assign.ResolverConfig{DefaultAgent: cfg.Assign.DefaultAgent},
		logger)
	if err != nil {
		fatal("Failed to build resolver: %v", err)
	}
	resolver = resolver.WithCollector(collector)

	runner := crew.NewLLMRunner(provider, crew.LLMRunnerConfig{Model: cfg.LLM.DefaultModel}, logger)

	c, err := crew.New(crew.Config{Name: "crewkit"}, resolver, runner, logger)
	if err != nil {
		fatal("Failed to build crew: %v", err)
	}
	c.AddTasks(cfg.Tasks...)

	result, err := c.Run(ctx)
	if err != nil {
		fatal("Run aborted: %v", err)
	}

	printRunResult(result)

	if cfg.Store.Enabled {
		history, err := store.Open(store.Config{Path: cfg.Store.Path}, logger)
		if err != nil {
			logger.Warn("history store unavailable", zap.Error(err))
			return
		}
		defer history.Close()
		if err := history.SaveRun(context.Background(), result); err != nil {
			logger.Warn("failed to persist run", zap.Error(err))
		}
	}
}

func printRunResult(result *crew.RunResult) {
	fmt.Printf("Run %s (%d tasks, %d failed, %s)\n",
		result.RunID, len(result.Results), result.Failures(), result.Duration.Round(time.Millisecond))
	for _, res := range result.Results {
		marker := "ok"
		switch {
		case res.Failed():
			marker = "FAILED: " + res.Error
		case res.Assignment.FellBack:
			marker = "ok (fallback)"
		}
		fmt.Printf("  [%s] %s -> %s  %s\n",
			res.Assignment.Task.Type, res.Assignment.Task.Description, res.Assignment.Agent.Name, marker)
		if res.Output != "" {
			fmt.Printf("      %s\n", strings.ReplaceAll(res.Output, "\n", "\n      "))
		}
	}
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	var notes stringSliceFlag
	fs.Var(&notes, "notes", "Note file to ground the answer on (repeatable)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("Usage: crewkit ask \"question\" [--notes file]...")
	}
	question := strings.Join(fs.Args(), " ")

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	provider := newProvider(cfg, logger)
	stopServer, err := ensureModelServer(ctx, cfg, provider, logger)
	if err != nil {
		fatal("Model server unavailable: %v", err)
	}
	defer stopServer()

	contextBlock := ""
	if len(notes) > 0 {
		contextBlock, err = buildNotesContext(ctx, cfg, notes, question, logger)
		if err != nil {
			fatal("Failed to index notes: %v", err)
		}
	}

	prompt := question
	if contextBlock != "" {
		prompt = contextBlock + "\nUsing the notes above, answer:\n" + question
	}

	resp, err := provider.Completion(ctx, &llm.CompletionRequest{Prompt: prompt})
	if err != nil {
		fatal("Completion failed: %v", err)
	}
	fmt.Println(strings.TrimSpace(resp.Text()))
}

// buildNotesContext indexes the note files into an in-memory vector
// store and renders the context block for the question.
func buildNotesContext(ctx context.Context, cfg *config.Config, notes []string, question string, logger *zap.Logger) (string, error) {
	retriever, cleanup := newNotesRetriever(cfg, logger)
	defer cleanup()

	if _, err := indexFiles(ctx, retriever, notes); err != nil {
		return "", err
	}
	return retriever.ContextBlock(ctx, question)
}

// newNotesRetriever builds the embedding-backed retriever behind ask
// and index. The cleanup closes the embedding cache when one attached.
func newNotesRetriever(cfg *config.Config, logger *zap.Logger) (*rag.Retriever, func()) {
	var embedder embedding.Provider = embedding.NewLocal(embedding.LocalConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxBatch:   cfg.Embedding.MaxBatch,
		Timeout:    cfg.Embedding.Timeout,
	}, logger)

	cleanup := func() {}
	if cfg.Redis.Enabled {
		manager, err := cache.NewManager(cache.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			DefaultTTL: cfg.Redis.DefaultTTL,
		}, logger)
		if err != nil {
			logger.Warn("embedding cache unavailable, embedding uncached", zap.Error(err))
		} else {
			cleanup = func() { manager.Close() }
			embedder = embedding.NewCached(embedder, manager, 0, logger)
		}
	}

	splitter := rag.NewSplitter(rag.SplitterConfig{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})
	retriever := rag.NewRetriever(embedder,
		rag.NewInMemoryStore(logger),
		splitter,
		rag.RetrieverConfig{TopK: cfg.Retrieval.TopK},
		logger)
	return retriever, cleanup
}

// indexedFile reports how many chunks one note file produced.
type indexedFile struct {
	Path   string
	Chunks int
}

func indexFiles(ctx context.Context, retriever *rag.Retriever, paths []string) ([]indexedFile, error) {
	out := make([]indexedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return out, err
		}
		n, err := retriever.Index(ctx, string(data), path)
		if err != nil {
			return out, fmt.Errorf("index %s: %w", path, err)
		}
		out = append(out, indexedFile{Path: path, Chunks: n})
	}
	return out, nil
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("Usage: crewkit index <file>...")
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	provider := newProvider(cfg, logger)
	stopServer, err := ensureModelServer(ctx, cfg, provider, logger)
	if err != nil {
		fatal("Model server unavailable: %v", err)
	}
	defer stopServer()

	retriever, cleanup := newNotesRetriever(cfg, logger)
	defer cleanup()

	files, err := indexFiles(ctx, retriever, fs.Args())
	if err != nil {
		fatal("Indexing failed: %v", err)
	}

	total := 0
	for _, f := range files {
		fmt.Printf("%s: %d chunks\n", f.Path, f.Chunks)
		total += f.Chunks
	}
	fmt.Printf("Indexed %d chunks from %d files\n", total, len(files))
}

func runPull(args []string) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: crewkit pull <model>")
	}
	model := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	provider := newProvider(cfg, logger)
	if err := provider.Pull(ctx, model); err != nil {
		fatal("Pull failed: %v", err)
	}
	fmt.Printf("Model %s ready\n", model)
}

func runModels(args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	models, err := newProvider(cfg, logger).ListModels(ctx)
	if err != nil {
		fatal("Failed to list models: %v", err)
	}
	if len(models) == 0 {
		fmt.Println("No models installed; try: crewkit pull qwen2:0.5b")
		return
	}
	for _, m := range models {
		fmt.Println(m.ID)
	}
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := newProvider(cfg, logger).HealthCheck(ctx)
	if err != nil {
		fatal("Health check failed: %v", err)
	}
	fmt.Printf("OK (%s)\n", status.Latency.Round(time.Millisecond))
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 10, "Number of runs to show")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	history, err := store.Open(store.Config{Path: cfg.Store.Path}, logger)
	if err != nil {
		fatal("Failed to open history: %v", err)
	}
	defer history.Close()

	ctx := context.Background()
	runs, err := history.Runs(ctx, *limit)
	if err != nil {
		fatal("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  %d tasks, %d failed, %s\n",
			run.StartedAt.Format(time.RFC3339), run.RunID, run.Tasks, run.Failures,
			run.Duration.Round(time.Millisecond))
	}

	load, err := history.AgentLoad(ctx)
	if err == nil && len(load) > 0 {
		fmt.Println("\nAssignments per agent:")
		for agent, n := range load {
			fmt.Printf("  %-20s %d\n", agent, n)
		}
	}
}
