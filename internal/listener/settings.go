package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/cache"
	"experiment-bridge/internal/config"
	"experiment-bridge/internal/storage"
)

// SettingsSource yields operator overrides for the integration options.
type SettingsSource interface {
	LoadIntegrationOptions(ctx context.Context) (*config.IntegrationPatch, error)
}

// Settings holds the options new adapter instances start from. Existing
// instances keep the options they were built with.
type Settings struct {
	base config.Integration
	snap cache.Snapshot[config.Integration]
}

func NewSettings(base config.Integration) *Settings {
	return &Settings{base: base}
}

func (s *Settings) Current() config.Integration {
	if v, ok := s.snap.Load(); ok {
		return v
	}
	return s.base
}

// Refresh reapplies the source's overrides on top of the configured base.
func (s *Settings) Refresh(ctx context.Context, src SettingsSource) error {
	patch, err := src.LoadIntegrationOptions(ctx)
	if err != nil {
		return err
	}
	s.snap.Store(s.base.Apply(patch))
	return nil
}

// ListenAndRefresh reloads settings whenever the settings channel is
// notified, until ctx is done.
func ListenAndRefresh(ctx context.Context, st *storage.Store, settings *Settings, channel string, baseBackoff time.Duration) {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire conn for listen")
		return
	}
	defer conn.Release()

	if channel == "" {
		channel = st.ListenChannel()
	}
	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("listen")
		return
	}
	log.Info().Str("channel", channel).Msg("listening for settings changes")

	var lastRefresh time.Time
	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("settings listener stopped")
			return
		}
		if err != nil {
			backoff := jitter(baseBackoff)
			log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		if time.Since(lastRefresh) < 200*time.Millisecond {
			continue // debounce burst of notifications
		}
		lastRefresh = time.Now()
		log.Info().Str("channel", ntf.Channel).Msg("settings change; reloading integration options")
		if err := settings.Refresh(ctx, st); err != nil {
			log.Error().Err(err).Msg("reload settings error")
		}
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x to 1.5x
	return time.Duration(float64(base) * factor)
}
