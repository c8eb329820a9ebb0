package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/loan-eligibility/internal/cache"
	"github.com/Dan9191/loan-eligibility/internal/integrations/cbr"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// KeyRateCacheKey is where the latest central bank key rate is cached
const KeyRateCacheKey = "cbr:key_rate"

const (
	keyRateTTL     = 24 * time.Hour
	refreshTimeout = 30 * time.Second
)

// KeyRateFetcher retrieves the current key rate
type KeyRateFetcher interface {
	GetKeyRate(ctx context.Context) (cbr.KeyRate, error)
}

// KeyRateRefresher periodically copies the central bank key rate into the cache
type KeyRateRefresher struct {
	cronEngine *cron.Cron
	fetcher    KeyRateFetcher
	cache      cache.Cache
	logger     *logrus.Logger
	spec       string
}

func NewKeyRateRefresher(fetcher KeyRateFetcher, c cache.Cache, logger *logrus.Logger, spec string) *KeyRateRefresher {
	return &KeyRateRefresher{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		fetcher:    fetcher,
		cache:      c,
		logger:     logger,
		spec:       spec,
	}
}

// Start schedules the refresh job. It fails on an invalid cron spec.
func (s *KeyRateRefresher) Start() error {
	s.logger.Info("Starting key rate scheduler...")

	_, err := s.cronEngine.AddFunc(s.spec, func() {
		s.logger.Debug("Cron job triggered for key rate refresh")
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := s.RefreshNow(ctx); err != nil {
			s.logger.WithError(err).Error("Key rate refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add key rate cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.spec).Info("Key rate scheduler started")
	return nil
}

// RefreshNow fetches the key rate and stores it in the cache
func (s *KeyRateRefresher) RefreshNow(ctx context.Context) (cbr.KeyRate, error) {
	kr, err := s.fetcher.GetKeyRate(ctx)
	if err != nil {
		return cbr.KeyRate{}, err
	}

	payload, err := json.Marshal(kr)
	if err != nil {
		return cbr.KeyRate{}, fmt.Errorf("failed to encode key rate: %w", err)
	}
	if err := s.cache.Set(ctx, KeyRateCacheKey, string(payload), keyRateTTL); err != nil {
		return cbr.KeyRate{}, fmt.Errorf("failed to cache key rate: %w", err)
	}
	return kr, nil
}

// Stop waits for a running refresh to finish
func (s *KeyRateRefresher) Stop() {
	s.logger.Info("Stopping key rate scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Key rate scheduler stopped")
}

// CachedKeyRate returns the cached key rate, if any
func CachedKeyRate(ctx context.Context, c cache.Cache) (cbr.KeyRate, bool) {
	raw, ok := c.Get(ctx, KeyRateCacheKey)
	if !ok {
		return cbr.KeyRate{}, false
	}
	var kr cbr.KeyRate
	if err := json.Unmarshal([]byte(raw), &kr); err != nil {
		return cbr.KeyRate{}, false
	}
	return kr, true
}
