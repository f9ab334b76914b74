// Package main is the entry point for the ledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/billing"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/config"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/handler"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/llm"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	natsclient "github.com/mehraj-vivasoft/pihr-autoquery/internal/nats"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/retrieval"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store/memory"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store/mongostore"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	log.Info("starting API server",
		zap.String("store", cfg.StoreDriver),
		zap.String("persist_mode", cfg.PersistMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "pihr-autoquery", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Services
	conversationSvc := service.NewConversationService(st, log)
	billingSvc := service.NewBillingService(st, log, service.WithRates(
		billing.Rates{In: cfg.BillingRateIn, Out: cfg.BillingRateOut},
		billing.Rates{In: cfg.ReportRateIn, Out: cfg.ReportRateOut},
	))
	messageSvc := service.NewMessageService(st, conversationSvc, billingSvc, log)
	feedbackSvc := service.NewFeedbackService(st, log)

	// Persistence queue
	var (
		natsClient *natsclient.Client
		publisher  service.PairPublisher
	)
	if cfg.PersistMode == config.PersistQueue {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		queue := natsclient.NewQueue(natsClient, log.Named("queue"))
		if err := queue.EnsureStream(ctx); err != nil {
			return err
		}

		consumer, err := queue.Consume(ctx, func(ctx context.Context, pair *model.PairWrite) error {
			_, err := messageSvc.PostPair(ctx, pair)
			if errors.Is(err, service.ErrConflict) || errors.Is(err, service.ErrInvalidArgument) {
				return fmt.Errorf("%w: %v", natsclient.ErrRejected, err)
			}
			return err
		})
		if err != nil {
			return err
		}
		defer consumer.Stop()

		go recordQueueStats(ctx, queue, log)
		publisher = queue
	}

	// Chat
	var chatHandler *handler.ChatHandler
	if responder, err := newResponder(cfg, log); err != nil {
		log.Warn("chat disabled", zap.Error(err))
	} else {
		chatSvc := service.NewChatService(messageSvc, responder, publisher, service.ChatOptions{
			Guardrail:      cfg.GuardrailEnabled,
			GenerateTitles: cfg.GenerateTitles,
			ContextWindow:  cfg.ContextWindow,
		}, log)
		chatHandler = handler.NewChatHandler(chatSvc, log)
	}

	router := handler.NewRouter(handler.Handlers{
		Health:        handler.NewHealthHandler(st, natsClient),
		Conversations: handler.NewConversationHandler(conversationSvc, log),
		Messages:      handler.NewMessageHandler(messageSvc, log),
		Feedback:      handler.NewFeedbackHandler(feedbackSvc, log),
		Billing:       handler.NewBillingHandler(billingSvc, log),
		Chat:          chatHandler,
	}, handler.RouterConfig{
		AuthEnabled:       cfg.AuthEnabled,
		JWTSecret:         cfg.JWTSecret,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, log.Named("http"))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	st, err := mongostore.Connect(ctx, mongostore.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: cfg.MongoConnTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// newResponder builds the model client, with retrieval when an
// Elasticsearch cluster is configured.
func newResponder(cfg *config.Config, log *logger.Logger) (service.Responder, error) {
	client, err := llm.NewClient(llm.Provider(cfg.LLMProvider), cfg.LLMAPIKey())
	if err != nil {
		return nil, err
	}

	var retriever llm.Retriever
	if cfg.RetrievalEnabled() {
		searcher, err := retrieval.NewElasticSearcher(retrieval.ElasticConfig{
			Addresses: cfg.ElasticAddresses,
			Username:  cfg.ElasticUsername,
			Password:  cfg.ElasticPassword,
			APIKey:    cfg.ElasticAPIKey,
		})
		if err != nil {
			return nil, err
		}
		embedder, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("retrieval needs an embedder: %w", err)
		}
		retriever = retrieval.New(searcher, embedder, retrieval.Config{Index: cfg.RetrievalIndex}, log)
	} else {
		log.Info("retrieval disabled, answering without document context")
	}

	return llm.NewAssistant(client, retriever, llm.AssistantConfig{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		TopK:        cfg.RetrievalTopK,
		MaxDistance: cfg.RetrievalMaxDistance,
	}, log), nil
}

func recordQueueStats(ctx context.Context, queue *natsclient.Queue, log *logger.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := queue.RecordStats(ctx); err != nil {
				log.Warn("failed to record queue stats", zap.Error(err))
			}
		}
	}
}
