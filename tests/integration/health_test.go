//go:build integration

package integration

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsink/internal/config"
	"mailsink/pkg/bootstrap"
	"mailsink/pkg/health"
)

func TestHealthCheckersAgainstLiveBackends(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	registry := health.NewCheckerRegistry()
	registry.Register(health.NewRedisChecker(infra.RedisClient))
	registry.Register(health.NewKafkaChecker(infra.KafkaBrokers))

	h := registry.Check(ctx)
	assert.Equal(t, health.StatusHealthy, h.Status)
	require.Len(t, h.Checks, 2)
}

func TestNewRedisClientConnects(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)

	host, portStr, ok := strings.Cut(infra.RedisClient.Options().Addr, ":")
	require.True(t, ok)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := bootstrap.NewRedisClient(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port, Channel: "x"})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(ctx).Err())
}
