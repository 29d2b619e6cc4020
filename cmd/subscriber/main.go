package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/cache"
	"github.com/vicent00/swap-facade/internal/config"
)

// main tails the live swap feed and logs every settled swap. It is both a
// working consumer and a template for downstream services.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	feed, err := cache.NewRedisCache(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer feed.Close()

	events, err := feed.SubscribeSwaps(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to swap feed")
	}

	logger.Info("subscriber running")

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down subscriber")
			return
		case event, ok := <-events:
			if !ok {
				logger.Info("swap feed closed")
				return
			}
			logger.WithFields(logrus.Fields{
				"id":         event.ID,
				"direction":  event.Direction,
				"pair":       event.Pair,
				"caller":     event.Caller,
				"amount_in":  event.AmountIn,
				"amount_out": event.AmountOut,
				"fee_tier":   event.FeeTier,
			}).Info("swap settled")
		}
	}
}
