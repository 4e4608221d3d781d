package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if yaml != "" {
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := decode(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Backoff())
	assert.Equal(t, 10000, cfg.Sessions.Max)
	assert.False(t, cfg.PostgresEnabled())
	assert.Equal(t, DefaultIntegration(), cfg.Integration)
}

func TestDecode_FileOverrides(t *testing.T) {
	cfg, err := decode(newViper(t, `
server:
  addr: ":9090"
postgres:
  host: db
  db_name: bridge
integration:
  listen: true
  non_interaction: true
  track_named_pages: false
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.PostgresEnabled())
	assert.Equal(t, "postgres://:@db:5432/bridge?sslmode=disable", cfg.DSN())
	assert.True(t, cfg.Integration.Listen)
	assert.True(t, cfg.Integration.NonInteraction)
	assert.True(t, cfg.Integration.TrackCategorizedPages)
	assert.False(t, cfg.Integration.TrackNamedPages)
}

func TestIntegration_Apply(t *testing.T) {
	yes, no := true, false
	base := DefaultIntegration()

	assert.Equal(t, base, base.Apply(nil))

	got := base.Apply(&IntegrationPatch{Listen: &yes, TrackNamedPages: &no})
	assert.True(t, got.Listen)
	assert.False(t, got.TrackNamedPages)
	assert.True(t, got.TrackCategorizedPages)
	assert.False(t, got.Variations)
}

func TestValidate_FillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Listener.ReconnectSeconds = -1
	validate(&cfg)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 2, cfg.Postgres.MaxIdleConns)
	assert.Equal(t, 5, cfg.Listener.ReconnectSeconds)
	assert.Equal(t, 10000, cfg.Sessions.Max)

	cfg.Postgres.Port = 6543
	validate(&cfg)
	assert.Equal(t, 6543, cfg.Postgres.Port)
}
