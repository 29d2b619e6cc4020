package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/models"
	"github.com/vicent00/swap-facade/internal/storage"
)

// FanoutSink fans a swap event out to the hot cache and the durable store.
// Both legs are best-effort: failures are logged, never propagated, so
// observability outages cannot fail a settled swap.
type FanoutSink struct {
	cache  storage.EventCache
	store  storage.EventStore
	logger *logrus.Logger
}

func NewFanoutSink(cache storage.EventCache, store storage.EventStore, logger *logrus.Logger) *FanoutSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &FanoutSink{cache: cache, store: store, logger: logger}
}

func (s *FanoutSink) Emit(ctx context.Context, event *models.SwapEvent) error {
	if s.cache != nil {
		if err := s.cache.AddRecentSwap(ctx, event); err != nil {
			s.logger.WithError(err).Warn("failed to cache swap event")
		}
		if err := s.cache.PublishSwap(ctx, event); err != nil {
			s.logger.WithError(err).Warn("failed to publish swap event")
		}
	}
	if s.store != nil {
		if err := s.store.InsertSwap(ctx, event); err != nil {
			s.logger.WithError(err).Warn("failed to store swap event")
		}
	}
	return nil
}
