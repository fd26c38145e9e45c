//go:build integration

package db

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/diewo77/procurement/internal/config"
)

// TestPostgresMigrations runs the SQL migrations and the seed against a real
// postgres started with testcontainers.
func TestPostgresMigrations(t *testing.T) {
	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "procurement",
				"POSTGRES_PASSWORD": "procurement",
				"POSTGRES_DB":       "procurement",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	portNum, _ := strconv.Atoi(port.Port())
	cfg := config.DatabaseConfig{
		Driver: "postgres", Host: host, Port: portNum,
		User: "procurement", Password: "procurement", DBName: "procurement", SSLMode: "disable",
	}

	d, err := Connect(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := runSQLMigrations("file://../../migrations", cfg.URL()); err != nil {
		t.Fatalf("sql migrations: %v", err)
	}
	if err := Seed(ctx, d, SeedOptions{AdminEmail: "admin@example.com", AdminPassword: "integration"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var n int64
	if err := d.Table("services").Count(&n).Error; err != nil || n == 0 {
		t.Fatalf("services after seed: n=%d err=%v", n, err)
	}
}
