// Command docent ingests a folder of markdown documents into a vector store
// and answers questions about them over HTTP or in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docent/config"
	"docent/llm/answer"
	"docent/llm/ingest"
	"docent/llm/loader"
	"docent/llm/memory"
	"docent/llm/providers"
	"docent/llm/vector"
	"docent/server"
	"docent/tui/chat"
)

const usage = `docent - ask questions about a folder of documents

Usage:
  docent [flags] <command>

Commands:
  ingest   rebuild the vector store from the knowledge base
  serve    start the HTTP chat server
  chat     chat in the terminal
  status   show store and configuration status

Flags:
  -config path   config file (default "config.yaml")
  -kb dir        override the knowledge base directory
  -addr host:port  override the serve listen address

Credentials are read from the environment (or a .env file): API_KEY is
required, EMBEDDING_API_KEY is optional and falls back to API_KEY.`

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	kbDir := flag.String("kb", "", "knowledge base directory override")
	addr := flag.String("addr", "", "serve listen address override")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// A .env file is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docent: %v\n", err)
		os.Exit(1)
	}
	if *kbDir != "" {
		cfg.Knowledge.Root = *kbDir
	}
	if *addr != "" {
		if host, port, splitErr := splitAddr(*addr); splitErr == nil {
			cfg.Server.Host = host
			cfg.Server.Port = port
		} else {
			fmt.Fprintf(os.Stderr, "docent: bad -addr: %v\n", splitErr)
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "docent: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docent: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "ingest":
		err = runIngest(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "chat":
		err = runChat(ctx, cfg, logger)
	case "status":
		err = runStatus(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "docent: unknown command %q\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

// splitAddr parses a host:port override.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q is not a number", portStr)
	}
	return host, port, nil
}

// newLogger builds the process logger. Debug mode gets the human-readable
// development encoder.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore opens the configured vector store backend.
func openStore(ctx context.Context, cfg *config.Config) (vector.Store, error) {
	storeCfg := vector.StoreConfig{
		Name:           cfg.Store.Name,
		EmbeddingModel: cfg.Embedding.Model,
	}

	switch cfg.Store.Backend {
	case "redis":
		return vector.NewRedisStore(ctx, vector.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       cfg.Store.RedisDB,
		}, storeCfg)
	case "file":
		return vector.NewFileStore(cfg.Store.Path, storeCfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newEmbeddings builds the embedding client wrapped in the dimension-checking
// service.
func newEmbeddings(ctx context.Context, cfg *config.Config) (*vector.EmbeddingService, error) {
	embedder, err := providers.NewEmbeddingModel(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding model: %w", err)
	}
	return vector.NewEmbeddingService(embedder, cfg.Embedding.Model), nil
}

// newAnswerer wires the full question-answering pipeline from config.
func newAnswerer(ctx context.Context, cfg *config.Config, store vector.Store, logger *zap.Logger) (*answer.Answerer, error) {
	embeddings, err := newEmbeddings(ctx, cfg)
	if err != nil {
		return nil, err
	}
	chatModel, err := providers.NewChatModel(ctx, cfg.Chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return answer.New(answer.Config{
		Embeddings:  embeddings,
		Store:       store,
		ChatModel:   chatModel,
		Memory:      memory.NewLog(memory.FullHistory{}),
		Logger:      logger,
		TopK:        cfg.Chat.TopK,
		Temperature: cfg.Chat.Temperature,
	})
}

func runIngest(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	embeddings, err := newEmbeddings(ctx, cfg)
	if err != nil {
		return err
	}

	ingestor, err := ingest.New(ingest.Config{
		Loader:     loader.New(cfg.Knowledge.Root, cfg.Knowledge.Pattern, logger),
		Embeddings: embeddings,
		Store:      store,
		Chunking: vector.ChunkConfig{
			ChunkSize:    cfg.Knowledge.ChunkSize,
			ChunkOverlap: cfg.Knowledge.ChunkOverlap,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	summary, err := ingestor.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d documents as %d chunks (%d stored, dim %d)\n",
		summary.Documents, summary.Chunks, summary.Stored, summary.Dim)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	answerer, err := newAnswerer(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer answerer.Close()

	srv := server.NewServer(answerer, store, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runChat(ctx context.Context, cfg *config.Config, _ *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Log lines would tear the alternate screen; errors surface in the UI.
	answerer, err := newAnswerer(ctx, cfg, store, zap.NewNop())
	if err != nil {
		return err
	}
	defer answerer.Close()

	program := tea.NewProgram(chat.InitialModel(answerer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

func runStatus(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	fmt.Printf("store:       %s (%s)\n", cfg.Store.Name, cfg.Store.Backend)
	fmt.Printf("chunks:      %d\n", count)
	if d, ok := store.(interface{ Dimension() int }); ok && d.Dimension() > 0 {
		fmt.Printf("dimension:   %d\n", d.Dimension())
	}
	fmt.Printf("knowledge:   %s\n", cfg.Knowledge.Root)
	fmt.Printf("chat model:  %s (%s)\n", cfg.Chat.Model, cfg.Chat.Provider)
	fmt.Printf("embeddings:  %s\n", cfg.Embedding.Model)
	return nil
}
