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

	bidding "bidding-engine/internal/biddingService"
	"bidding-engine/internal/config"
	"bidding-engine/internal/lifecycle"
	"bidding-engine/internal/notification"
	"bidding-engine/internal/repository"
	"bidding-engine/internal/server"
	"bidding-engine/internal/stream"
	"bidding-engine/internal/telemetry"
	"bidding-engine/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

func main() {
	if err := run(); err != nil {
		utils.Fatal("auction server stopped", map[string]any{"error": err.Error()})
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}

	hub := stream.NewHub()
	sinks, closeSinks, err := buildSinks(cfg, hub)
	if err != nil {
		return err
	}
	defer closeSinks()

	notifier := notification.NewAsyncSink(sinks, cfg.NotifyBuffer)
	defer notifier.Close()

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.Config{
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.OTLPInsecure,
		Interval:     cfg.MetricsInterval,
	})
	if err != nil {
		return err
	}
	otel.SetMeterProvider(meters)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meters.Shutdown(shutdownCtx)
	}()

	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithNotifier(notifier),
		bidding.WithMaxConflictRetries(cfg.MaxConflictRetries),
		bidding.WithMeterProvider(meters),
	)
	auctions := lifecycle.NewManager(biddingSvc, repo, notifier)

	if cfg.SeedDemo {
		if err := seedAuctions(ctx, auctions); err != nil {
			return err
		}
	}

	deps := server.Dependencies{
		Bidding:  biddingSvc,
		Auctions: auctions,
		Live:     hub.ServeAuction,
	}
	if cfg.RateLimitRPS > 0 {
		deps.Limiter = server.NewBidderRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go deps.Limiter.Run(time.Minute, ctx.Done())
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.SetupRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "store": cfg.StoreDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Info("shutting down auction server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepo(cfg *config.Config) (repository.AuctionDB, error) {
	if cfg.StoreDriver == config.StoreMySQL {
		return repository.OpenMySQL(cfg.DatabaseURL)
	}
	return repository.NewMemoryRepo(), nil
}

// buildSinks fans notifications out to the log, the live hub and any configured broker
func buildSinks(cfg *config.Config, hub *stream.Hub) (notification.Fanout, func(), error) {
	sinks := notification.Fanout{notification.LogSink{}, hub}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.AMQPURL != "" {
		publisher, err := notification.NewReconnectingPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, publisher.Close)
		sinks = append(sinks, notification.NewAMQPSink(publisher, cfg.AMQPExchange))
		utils.Info("publishing notifications to AMQP", map[string]any{"exchange": cfg.AMQPExchange})
	}

	if cfg.RedisAddr != "" {
		client := notification.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		closers = append(closers, func() { _ = client.Close() })
		sinks = append(sinks, notification.NewRedisSink(client))
		utils.Info("publishing notifications to redis", map[string]any{"addr": cfg.RedisAddr})
	}

	return sinks, closeAll, nil
}

// seedAuctions adds a few live sample auctions for local runs
func seedAuctions(ctx context.Context, auctions *lifecycle.Manager) error {
	now := time.Now().UTC()
	samples := []lifecycle.CreateRequest{
		{ProductID: "vintage-camera", SellerID: "seller1", StartPrice: decimal.NewFromInt(100), MinIncrement: decimal.NewFromInt(5)},
		{ProductID: "road-bike", SellerID: "seller2", StartPrice: decimal.NewFromInt(200), MinIncrement: decimal.NewFromInt(10)},
		{ProductID: "first-edition", SellerID: "seller1", StartPrice: decimal.RequireFromString("150.50"), MinIncrement: decimal.RequireFromString("2.50")},
	}

	for _, req := range samples {
		req.StartTime = now
		req.EndTime = now.Add(24 * time.Hour)
		a, err := auctions.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("seed %s: %w", req.ProductID, err)
		}
		if _, err := auctions.Start(ctx, a.AuctionID); err != nil {
			return fmt.Errorf("seed %s: %w", req.ProductID, err)
		}
		utils.Info("seeded auction", map[string]any{"auction_id": a.AuctionID, "product_id": req.ProductID})
	}
	return nil
}
