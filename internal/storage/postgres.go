package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"experiment-bridge/internal/config"
	"experiment-bridge/internal/emitter"
)

const schema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	message_id  TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	event       TEXT,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS integration_settings (
	id                      INT PRIMARY KEY DEFAULT 1,
	listen                  BOOLEAN,
	variations              BOOLEAN,
	track_categorized_pages BOOLEAN,
	track_named_pages       BOOLEAN,
	non_interaction         BOOLEAN
);
`

var _ emitter.Sink = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the event and settings tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.PgxPool().Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

// Write stores one outbound analytics event.
func (s *Store) Write(ctx context.Context, evt emitter.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.MessageID, err)
	}
	_, err = s.PgxPool().Exec(ctx, `
		INSERT INTO analytics_events (message_id, session_id, type, event, payload, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`, evt.MessageID, evt.SessionID, evt.Type, evt.Name, payload, evt.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", evt.MessageID, err)
	}
	return nil
}

// LoadIntegrationOptions reads the operator overrides. A missing row means
// no overrides.
func (s *Store) LoadIntegrationOptions(ctx context.Context) (*config.IntegrationPatch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p config.IntegrationPatch
	err := s.PgxPool().QueryRow(ctx, `
		SELECT listen, variations, track_categorized_pages, track_named_pages, non_interaction
		FROM integration_settings
		WHERE id = 1
	`).Scan(&p.Listen, &p.Variations, &p.TrackCategorizedPages, &p.TrackNamedPages, &p.NonInteraction)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query integration settings: %w", err)
	}
	return &p, nil
}

func (s *Store) ListenChannel() string {
	return "bridge_settings_change"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
