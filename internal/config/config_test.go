package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("REALTIME_TRANSPORTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{TransportWebsocket}, cfg.Realtime.Transports)
	assert.True(t, cfg.Realtime.HasTransport(TransportWebsocket))
	assert.False(t, cfg.Realtime.HasTransport(TransportPusher))
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("REALTIME_TRANSPORTS", " websocket, Redis ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PROFILE_CACHE_TTL", "30s")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"websocket", "redis"}, cfg.Realtime.Transports)
	assert.Equal(t, 30*time.Second, cfg.Redis.ProfileCacheTTL)
	assert.True(t, cfg.Server.DebugRoutes)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{DSN: "postgres://x"},
			Auth:     AuthConfig{HMACSecret: "s"},
			Realtime: RealtimeConfig{Transports: []string{TransportWebsocket}},
		}
	}

	require.NoError(t, base().Validate())

	noKey := base()
	noKey.Auth.HMACSecret = ""
	assert.Error(t, noKey.Validate())

	unknown := base()
	unknown.Realtime.Transports = []string{"carrier-pigeon"}
	assert.ErrorContains(t, unknown.Validate(), "unknown realtime transport")

	pusherMissing := base()
	pusherMissing.Realtime.Transports = []string{TransportPusher}
	assert.ErrorContains(t, pusherMissing.Validate(), "pusher")

	redisMissing := base()
	redisMissing.Realtime.Transports = []string{TransportRedis}
	assert.ErrorContains(t, redisMissing.Validate(), "REDIS_ADDR")
}
