package testinfra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var Pool *pgxpool.Pool

func init() {
	Pool = SetupDB()
}

func SetupDB() *pgxpool.Pool {

	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:17.2-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	if err != nil {
		log.Panicf("start postgres: %v", err)
	}

	pgHostPort, err := pgC.Endpoint(ctx, "")
	if err != nil {
		log.Panicf("postgres endpoint: %v", err)
	}
	pgDSN := fmt.Sprintf("postgres://postgres:password@%s/testdb?sslmode=disable", pgHostPort)

	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		log.Panicf("pgxpool connect: %v", err)
	}

	ok := false
	for i := 0; i < 20; i++ {
		slog.Info("ping db", "try", i)
		ctxPing, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			ok = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		log.Panic("db did not respond after 20 attempts")
	}

	_, err = pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS delivery;
		CREATE TABLE IF NOT EXISTS delivery.customers (
			id UUID PRIMARY KEY,
			business_name TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			second_name TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			stripe_id TEXT UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS delivery.sites (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES delivery.customers(id),
			status VARCHAR(40) NOT NULL,
			artifact_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS delivery.attempts (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES delivery.customers(id),
			site_id UUID NOT NULL REFERENCES delivery.sites(id),
			status VARCHAR(40) NOT NULL,
			domain VARCHAR(255),
			deployment_url VARCHAR(255),
			credentials JSONB NOT NULL DEFAULT '{}',
			steps JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS attempts_active_unique
			ON delivery.attempts(customer_id, site_id)
			WHERE status IN ('pending', 'in_progress');
		CREATE TABLE IF NOT EXISTS delivery.outbox (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			event VARCHAR(60) NOT NULL,
			status SMALLINT NOT NULL DEFAULT 0,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS delivery.mail_templates (
			"type" VARCHAR(40) PRIMARY KEY,
			content TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS delivery.mails (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			"type" VARCHAR(40) NOT NULL,
			recipients TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		log.Panicf("create tables: %v", err)
	}

	return pool
}
