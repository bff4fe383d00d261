package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savora-food/api/internal/config"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/gateway"
	"github.com/savora-food/api/internal/handler"
	"github.com/savora-food/api/internal/middleware"
	"github.com/savora-food/api/internal/notify"
	"github.com/savora-food/api/internal/router"
	"github.com/savora-food/api/internal/upload"
	"github.com/savora-food/api/internal/vision"
	"github.com/savora-food/api/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}
	log.Println("Connected to database")

	stripe, err := gateway.NewStripe(cfg.StripeKey, nil)
	if err != nil {
		return err
	}

	uploads, err := upload.NewStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	var analyzer handler.ImageAnalyzer
	if cfg.GeminiAPIKey != "" {
		gemini, err := vision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		defer gemini.Close()
		analyzer = vision.NewAnalyzer(gemini)
	} else {
		log.Println("WARNING: GEMINI_API_KEY not set, image analysis disabled")
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewPublisher(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifier = pub
	} else {
		log.Println("WARNING: AMQP_URL not set, admin status e-mails are only logged")
	}

	hub := ws.NewHub()
	contactLimiter := middleware.NewRateLimiter(0.1, 5)
	aiLimiter := middleware.NewRateLimiter(0.5, 10)

	r := router.New(cfg, database.New(pool), pool, router.Deps{
		Hub:            hub,
		Gateway:        stripe,
		Notifier:       notifier,
		Uploads:        uploads,
		Analyzer:       analyzer,
		ContactLimiter: contactLimiter,
		AILimiter:      aiLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				contactLimiter.Sweep()
				aiLimiter.Sweep()
			}
		}
	})

	g.Go(func() error {
		log.Printf("Starting server on :%s (%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
