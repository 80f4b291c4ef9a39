package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"agent-swarm/internal/adapter/embedding"
	"agent-swarm/internal/adapter/httpapi"
	"agent-swarm/internal/adapter/knowledge"
	"agent-swarm/internal/adapter/llm"
	"agent-swarm/internal/adapter/tool"
	"agent-swarm/internal/adapter/userstore"
	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/config"
	"agent-swarm/internal/infra/logger"
	"agent-swarm/internal/infra/tracer"
	"agent-swarm/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("AGENTSWARM_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. LLM provider, wrapped in a circuit breaker when enabled
	var provider domain.LLMProvider = llm.NewOpenAIProvider(cfg.LLM.Provider, log)
	if cfg.LLM.CircuitBreaker.Enabled {
		provider = llm.NewCircuitBreakerProvider(provider, cfg.LLM.CircuitBreaker, log)
	}

	// 4. Embeddings (optional: FAQ similarity + hybrid knowledge search)
	var embedder domain.EmbeddingProvider
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewOpenAIProvider(cfg.Embedding)
	} else {
		log.Warn("no embedding api key, FAQ similarity and hybrid search disabled")
	}

	// 5. User store
	users, err := userstore.Open(":memory:")
	if err != nil {
		return fmt.Errorf("user store: %w", err)
	}
	defer users.Close()
	if err := users.Seed(ctx, seedRecords(cfg.Agents.Users)); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	// 6. Knowledge base
	if dir := filepath.Dir(cfg.Knowledge.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("knowledge dir: %w", err)
		}
	}
	kb, err := knowledge.New(cfg.Knowledge.DBPath, cfg.Knowledge.ChunkSize, embedder, log)
	if err != nil {
		return fmt.Errorf("knowledge store: %w", err)
	}
	defer kb.Close()
	for _, doc := range cfg.Knowledge.Documents {
		if err := kb.IngestFile(ctx, doc); err != nil {
			log.Warn("knowledge ingest failed", "document", doc, "error", err)
		}
	}
	if n, err := kb.Count(ctx); err == nil {
		log.Info("knowledge base ready", "chunks", n)
	}

	// 7. Prompts
	prompts, err := usecase.LoadPrompts(cfg.Agents.PromptsDir)
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}

	// 8. Per-agent tool registries
	supportTools := tool.NewRegistry(log)
	supportTools.MustRegister(
		tool.NewDBQueryTool(users, log),
		tool.NewContactSupportTool(tool.NewSMTPBackend(cfg.Tools.SMTP), cfg.Tools.SMTP.SupportInbox, log),
	)

	knowledgeTools := tool.NewRegistry(log)
	knowledgeTools.MustRegister(
		tool.NewWebSearchTool(
			tool.NewDuckDuckGoBackend(cfg.Tools.Search.BaseURL, log),
			cfg.Tools.Search.CacheTTL, cfg.Tools.Search.MaxResults, log,
		),
	)

	generalTools := tool.NewRegistry(log)
	generalTools.MustRegister(
		tool.NewSlackNotificationTool(tool.NewWebhookNotifier(cfg.Tools.Slack), log),
		tool.NewNewsTool(cfg.Tools.News, log),
	)

	// 9. Agents
	faq := usecase.NewFAQPreCheck(ctx, cfg.Agents.FAQ, cfg.Agents.FAQThreshold, embedder, log)
	retrieval := usecase.NewRetrievalPreCheck(kb, cfg.Knowledge.TopK, log)

	agents := []domain.AgentHandler{
		usecase.NewAgent(domain.CustomerSupportAgent, prompts.CustomerSupport, provider, supportTools, log,
			usecase.WithPreCheck(faq),
			usecase.WithTokenEstimator(llm.CountRequest)),
		usecase.NewAgent(domain.KnowledgeAgent, prompts.Knowledge, provider, knowledgeTools, log,
			usecase.WithPreCheck(retrieval),
			usecase.WithTokenEstimator(llm.CountRequest)),
		usecase.NewAgent(domain.GeneralAgent, prompts.General, provider, generalTools, log,
			usecase.WithTokenEstimator(llm.CountRequest)),
	}

	// 10. Orchestration
	router := usecase.NewRouter(provider, prompts.Router, agents, log)
	personality := usecase.NewPersonality(provider, prompts.Personality, log)
	orchestrator := usecase.NewOrchestrator(router, personality, log)

	// 11. HTTP server with graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpapi.New(ctx, cfg.Server, orchestrator, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	log.Info("agent-swarm started",
		"addr", cfg.Server.Addr,
		"model", cfg.LLM.Provider.Model,
		"embeddings", embedder != nil,
		"users", len(cfg.Agents.Users),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	log.Info("agent-swarm stopped")
	return nil
}

func seedRecords(users []config.UserSeedConfig) []domain.UserRecord {
	records := make([]domain.UserRecord, len(users))
	for i, u := range users {
		records[i] = domain.UserRecord{
			UserID:        u.UserID,
			Email:         u.Email,
			UserName:      u.UserName,
			PaymentStatus: u.PaymentStatus,
			OrderStatus:   u.OrderStatus,
		}
	}
	return records
}
