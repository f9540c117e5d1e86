package bootstrap

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Domenick1991/railbooking/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		HTTP:     config.HTTPConfig{Address: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			Secret:   "0123456789abcdef0123456789abcdef",
			Issuer:   "railbooking",
			Audience: []string{"railbooking-api"},
		},
		Media: config.MediaConfig{Dir: t.TempDir(), BaseURL: "/media"},
	}
}

func TestNewContainer_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	c, err := NewContainer(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Empty(t, c.checks)
	deps, err := c.APIDeps(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Media.Dir, deps.MediaDir)
	assert.NotNil(t, deps.Authenticator)
	assert.NotNil(t, deps.Authorizer)
}

func TestServers_GracefulShutdown(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	c, err := NewContainer(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()
	deps, err := c.APIDeps(ctx, cfg)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := newServers(cfg, *deps)
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("servers did not stop")
	}
}
