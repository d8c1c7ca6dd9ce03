package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
	"github.com/zhouzirui/kite-dashboard/backend/internal/handler"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/ai"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/chatbot"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/news"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/search"
	"github.com/zhouzirui/kite-dashboard/backend/internal/storage/holdings"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := holdings.Open(cfg.Storage.HoldingsDB)
	if err != nil {
		log.Fatalf("failed to open holdings database: %v", err)
	}
	defer db.Close()
	repo := holdings.NewRepository(db)

	var llm ai.Completer
	if cfg.AI.Enabled() {
		llm, err = ai.New(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			log.Printf("AI service initialized with provider %s", cfg.AI.Provider)
		}
	} else {
		log.Println("AI credentials not configured, chatbot replies will report an error")
	}

	if cfg.Market.TavilyAPIKey == "" {
		log.Println("TAVILY_API_KEY not configured, market news and chatbot web search are disabled")
	}
	searcher := search.NewTavilyClient(cfg.Market.TavilyAPIKey, cfg.Market.TavilyBaseURL, nil)

	chatLLM := llm
	if llm != nil {
		var webSearch chatbot.ArticleSearcher
		if cfg.Market.TavilyAPIKey != "" {
			webSearch = searcher
		}
		agent, err := chatbot.NewToolCompleter(ctx, cfg.AI, repo, webSearch)
		if err != nil {
			log.Printf("warning: failed to initialize chatbot tools: %v", err)
			log.Println("chatbot will answer without tools")
		} else {
			chatLLM = agent
		}
	}
	chatbotSvc := chatbot.NewService(chatLLM, repo)

	newsSvc := news.NewService(repo, searcher, llm, news.Config{TopHoldings: cfg.Market.NewsTopHolding})

	router := handler.NewRouter(cfg, chatbotSvc, repo, newsSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Kite dashboard backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
