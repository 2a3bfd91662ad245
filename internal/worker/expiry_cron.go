package worker

// expiry_cron.go
// Background goroutine that periodically sweeps AVAILABLE lots whose
// expiration date has passed into EXPIRED. The sweep itself is chunked and
// idempotent (see LotRegistryService.ExpireLots), so an interrupted tick is
// simply finished by the next one.

import (
	"context"
	"time"

	"lotledger/internal/service"

	"github.com/rs/zerolog/log"
)

const expirySweepActor = "system:expiry-sweep"

// StartExpirySweep launches the sweep goroutine. It respects the context for
// graceful shutdown and runs one sweep immediately at startup.
func StartExpirySweep(ctx context.Context, registry service.LotRegistryService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("expiry_sweep: started")
		sweep(ctx, registry)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_sweep: shutting down")
				return
			case <-ticker.C:
				sweep(ctx, registry)
			}
		}
	}()
}

func sweep(ctx context.Context, registry service.LotRegistryService) {
	expired, err := registry.ExpireLots(ctx, expirySweepActor)
	if err != nil {
		log.Error().Err(err).Msg("expiry_sweep: sweep failed")
		return
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("expiry_sweep: lots expired")
	}
}
