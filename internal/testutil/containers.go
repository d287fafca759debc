package testutil

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/hashicorp/go-multierror"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres credentials used by StartPostgres
const (
	PostgresUser     = "testuser"
	PostgresPassword = "testpass"
	PostgresDB       = "testdb"
)

// Endpoint is the host side address of a container port
type Endpoint struct {
	Host string
	Port int
}

// Addr returns host:port
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Containers holds the containers started for a test run
type Containers struct {
	started []testcontainers.Container

	Postgres Endpoint
	Redis    Endpoint
	NATSURL  string
}

// StartPostgres starts PostgreSQL and records its endpoint
func (c *Containers) StartPostgres(ctx context.Context) error {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(PostgresDB),
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	c.started = append(c.started, container)

	c.Postgres, err = endpoint(ctx, container, "5432/tcp")
	if err != nil {
		return fmt.Errorf("failed to get postgres endpoint: %w", err)
	}
	return nil
}

// StartRedis starts Redis and records its endpoint
func (c *Containers) StartRedis(ctx context.Context) error {
	container, err := redis.Run(ctx, "redis:7-alpine",
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	if err != nil {
		return fmt.Errorf("failed to start redis container: %w", err)
	}
	c.started = append(c.started, container)

	c.Redis, err = endpoint(ctx, container, "6379/tcp")
	if err != nil {
		return fmt.Errorf("failed to get redis endpoint: %w", err)
	}
	return nil
}

// StartNATS starts NATS with JetStream enabled and records its URL
func (c *Containers) StartNATS(ctx context.Context) error {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			WaitingFor: wait.ForLog("Server is ready").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start nats container: %w", err)
	}
	c.started = append(c.started, container)

	ep, err := endpoint(ctx, container, "4222/tcp")
	if err != nil {
		return fmt.Errorf("failed to get nats endpoint: %w", err)
	}
	c.NATSURL = "nats://" + ep.Addr()
	return nil
}

func endpoint(ctx context.Context, container testcontainers.Container, port nat.Port) (Endpoint, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return Endpoint{}, err
	}
	n, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Host: host, Port: n}, nil
}

// Cleanup terminates every started container
func (c *Containers) Cleanup(ctx context.Context) error {
	var result *multierror.Error
	for i := len(c.started) - 1; i >= 0; i-- {
		if err := c.started[i].Terminate(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.started = nil
	return result.ErrorOrNil()
}
