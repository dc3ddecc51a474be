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

	"github.com/secret-echo/secret-echo/internal/config"
	"github.com/secret-echo/secret-echo/internal/db"
	"github.com/secret-echo/secret-echo/internal/httpapi"
	"github.com/secret-echo/secret-echo/internal/message"
	"github.com/secret-echo/secret-echo/internal/models"
	"github.com/secret-echo/secret-echo/internal/realtime"
	"github.com/secret-echo/secret-echo/internal/responder"
	"github.com/secret-echo/secret-echo/internal/store/rabbitmq"
	"github.com/secret-echo/secret-echo/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&models.User{}, &message.Message{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rds.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Printf("redis unavailable, falling back to in-process rate limiting: %v", err)
			_ = rds.Close()
			rds = nil
		}
	}

	hub := realtime.NewHub()
	repo := message.NewRepo(gdb)
	svc := message.NewService(repo, responder.New(nil), hub,
		cfg.ReplyDelayMin, cfg.ReplyDelayMax, cfg.TypingPause)

	var dispatch message.Dispatcher
	switch cfg.DispatchMode {
	case "rabbit":
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit publisher: %v", err)
		}
		defer pub.Close()
		dispatch = message.NewQueueDispatcher(pub)
	case "", "inline":
		dispatch = message.NewInlineDispatcher(svc)
	default:
		log.Fatalf("unsupported DISPATCH_MODE=%q", cfg.DispatchMode)
	}

	router := httpapi.NewRouter(gdb, cfg, rds, hub, svc, dispatch)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s dispatch=%s", cfg.ListenAddr, cfg.DispatchMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	// In-flight reply pipelines are abandoned, not drained; their messages
	// either persisted already or are lost, which bulk fetch tolerates.
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
