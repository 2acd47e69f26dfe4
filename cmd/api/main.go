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

	"github.com/zhouzirui/opencode-chat/internal/broker"
	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/handler"
	chathandler "github.com/zhouzirui/opencode-chat/internal/handler/chat"
	providerhandler "github.com/zhouzirui/opencode-chat/internal/handler/provider"
	"github.com/zhouzirui/opencode-chat/internal/handler/ws"
	"github.com/zhouzirui/opencode-chat/internal/middleware"
	"github.com/zhouzirui/opencode-chat/internal/model/provider"
	"github.com/zhouzirui/opencode-chat/internal/service/ai"
	"github.com/zhouzirui/opencode-chat/internal/service/assistant"
	chatservice "github.com/zhouzirui/opencode-chat/internal/service/chat"
	"github.com/zhouzirui/opencode-chat/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Session storage
	sessions := chatservice.NewService()
	if cfg.Store.DBPath != "" {
		db, err := store.NewSQLite(cfg.Store.DBPath)
		if err != nil {
			log.Fatalf("failed to open session store: %v", err)
		}
		defer db.Close()
		sessions = chatservice.NewServiceWithRepository(db)
		log.Printf("session store: sqlite %s", cfg.Store.DBPath)
	} else {
		log.Println("session store: memory")
	}

	// Broadcast broker
	var b broker.Broker
	if cfg.Broker.RedisURL != "" {
		rb, err := broker.NewRedisBroker(ctx, cfg.Broker.RedisURL, cfg.Broker.TopicPrefix)
		if err != nil {
			log.Fatalf("failed to connect to redis broker: %v", err)
		}
		b = rb
		log.Println("broker: redis")
	} else {
		b = broker.NewMemoryBroker()
		log.Println("broker: memory")
	}
	defer b.Close()

	// Initialize AI engine
	engine := ai.NewService(cfg.AI)
	if !cfg.AI.Enabled() {
		log.Println("Ark 凭证未配置，引擎启动将失败，命令仍可使用")
	} else if cfg.AI.AutoStart {
		if err := engine.Start(ctx); err != nil {
			log.Printf("warning: failed to auto-start engine: %v", err)
		} else {
			log.Println("AI engine started")
		}
	}
	defer engine.Stop()

	providers := provider.NewMemoryStore(cfg.AI.Providers())
	processor := assistant.NewProcessor(engine, sessions, providers, cfg.Shell)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)
	defer limiter.Close()

	router := handler.NewRouter(cfg.Server, handler.Handlers{
		Chat:      chathandler.New(engine, processor, publicURL(cfg.Server.Addr)),
		Providers: providerhandler.New(providers),
		WebSocket: ws.New(processor, b),
		Limiter:   limiter,
	})

	startServer(ctx, cfg.Server, router)
}

func publicURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("opencode-chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
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
